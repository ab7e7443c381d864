package logging

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide JSON logger. LOG_LEVEL accepts the slog
// level names (DEBUG, INFO, WARN, ERROR); anything else keeps INFO.
func Setup() {
	level := slog.LevelInfo
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(raw)); err == nil {
			level = parsed
		}
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("service", "financeautonome"))
}
