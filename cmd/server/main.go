// Command server runs the Count On Sheep transform pipeline: an HTTP server
// by default, plus CLI subcommands for one-off runs and catalog edits.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	_ "github.com/JonMunkholm/countonsheep/internal/core/steps" // Register all steps
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
