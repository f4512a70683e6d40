// Package config loads tada's settings. Precedence, highest first:
// TADA_* environment variables, an explicit --config file, ./.tada.yaml,
// ~/.tada/config.yaml, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	dirName         = ".tada"
	projectFileName = ".tada.yaml"
	envPrefix       = "TADA"
)

// Config holds all configuration for tada.
type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	Providers []string      `mapstructure:"providers"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Theme     string        `mapstructure:"theme"`
	Cookies   CookieConfig  `mapstructure:"cookies"`
	Routes    RoutesConfig  `mapstructure:"routes"`
	Log       LogConfig     `mapstructure:"log"`
}

// CookieConfig names the cookies and header the backend uses.
type CookieConfig struct {
	Session    string `mapstructure:"session"`
	CSRF       string `mapstructure:"csrf"`
	CSRFHeader string `mapstructure:"csrf_header"`
}

// RoutesConfig holds the client-side route table.
type RoutesConfig struct {
	Home     string `mapstructure:"home"`
	Login    string `mapstructure:"login"`
	Callback string `mapstructure:"callback"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// File defaults to ~/.tada/tada.log when empty.
	File string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("providers", []string{"google", "facebook", "microsoft"})
	v.SetDefault("timeout", "0s")
	v.SetDefault("theme", "classic")

	v.SetDefault("cookies.session", "JSESSIONID")
	v.SetDefault("cookies.csrf", "XSRF-TOKEN")
	v.SetDefault("cookies.csrf_header", "X-XSRF-TOKEN")

	v.SetDefault("routes.home", "/")
	v.SetDefault("routes.login", "/login")
	v.SetDefault("routes.callback", "/auth/callback")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Dir returns ~/.tada, where config, credentials and logs live.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Load reads the layered configuration. explicitPath may be empty.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	var files []string
	if dir, err := Dir(); err == nil {
		files = append(files, filepath.Join(dir, "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		files = append(files, filepath.Join(cwd, projectFileName))
	}
	for _, p := range files {
		if err := mergeFile(v, p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if explicitPath != "" {
		if err := mergeFile(v, explicitPath); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType("yaml")
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := v.MergeConfigMap(fv.AllSettings()); err != nil {
		return fmt.Errorf("merging %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the services cannot work without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: base_url %q is not an absolute URL", c.BaseURL)
	}
	if len(c.Providers) == 0 {
		return errors.New("config: at least one login provider is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %s", c.Timeout)
	}
	return nil
}

// HasProvider reports whether name is one of the configured providers.
func (c *Config) HasProvider(name string) bool {
	for _, p := range c.Providers {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// LogFile resolves the log path.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tada.log"), nil
}
