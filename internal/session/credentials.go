package session

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

const (
	credFileName = "credentials.json"
	// EnvSession overrides the stored session cookie.
	EnvSession = "TADA_SESSION"
)

// Credentials are the backend cookies kept between runs. A terminal has no
// browser cookie store, so the session cookie lives here instead.
type Credentials struct {
	Cookies   []StoredCookie `json:"cookies"`
	Source    string         `json:"source"`     // "env" | "file"
	CreatedAt time.Time      `json:"created_at"` // when we saved to file
}

type StoredCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HTTPCookies converts for the API client's jar.
func (c *Credentials) HTTPCookies() []*http.Cookie {
	if c == nil {
		return nil
	}
	out := make([]*http.Cookie, 0, len(c.Cookies))
	for _, sc := range c.Cookies {
		out = append(out, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: "/"})
	}
	return out
}

// Value returns the named cookie value, or "".
func (c *Credentials) Value(name string) string {
	if c == nil {
		return ""
	}
	for _, sc := range c.Cookies {
		if sc.Name == name {
			return sc.Value
		}
	}
	return ""
}

func credFilePath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credFileName), nil
}

// LoadCredentials returns nil, nil when not logged in. The TADA_SESSION
// env var wins over the file and is stored under sessionCookie.
func LoadCredentials(sessionCookie string) (*Credentials, error) {
	if env := strings.TrimSpace(os.Getenv(EnvSession)); env != "" {
		return &Credentials{
			Cookies: []StoredCookie{{Name: sessionCookie, Value: CookieValue(sessionCookie, env)}},
			Source:  "env",
		}, nil
	}

	p, err := credFilePath()
	if err != nil {
		return nil, err
	}
	var c Credentials
	found, err := jsonstore.Load(p, &c)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if !found || len(c.Cookies) == 0 {
		return nil, nil
	}
	return &c, nil
}

// SaveCredentials persists cookies with owner-only permissions.
func SaveCredentials(cookies []*http.Cookie) error {
	c := Credentials{Source: "file", CreatedAt: time.Now()}
	for _, ck := range cookies {
		if ck.Value == "" {
			continue
		}
		c.Cookies = append(c.Cookies, StoredCookie{Name: ck.Name, Value: ck.Value})
	}
	if len(c.Cookies) == 0 {
		return errors.New("no cookies to save")
	}
	p, err := credFilePath()
	if err != nil {
		return err
	}
	if err := jsonstore.Save(p, c, 0o600); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// DeleteCredentials removes the file; a missing file is fine.
func DeleteCredentials() error {
	p, err := credFilePath()
	if err != nil {
		return err
	}
	return jsonstore.Remove(p)
}

// CookieValue accepts a bare value or a pasted "NAME=value" pair.
func CookieValue(name, s string) string {
	s = strings.TrimSpace(s)
	if prefix := name + "="; strings.HasPrefix(s, prefix) {
		s = strings.TrimPrefix(s, prefix)
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
