package logger

import (
	"log/slog"
	"os"
)

// SetupPrettySlog returns a human-readable logger for local development.
// Structured JSON output for deployed environments is selected in components.SetupLogger.
func SetupPrettySlog() *slog.Logger {
	return slog.New(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: false,
		}),
	)
}
