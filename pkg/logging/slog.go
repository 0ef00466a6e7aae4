package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process-wide JSON logger. Level comes from LOG_LEVEL and
// defaults to info.
func New(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	})
	log := slog.New(h).With("service", service)
	slog.SetDefault(log)
	return log
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
