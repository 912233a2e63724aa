package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/abedl/abedl/internal/cli"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()
	os.Exit(cli.Execute())
}
