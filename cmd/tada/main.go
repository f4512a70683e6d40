package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/Makepad-fr/tada/internal/cli"
)

func main() {
	// .env is optional; TADA_* values in it feed the config layer
	_ = godotenv.Load()
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
