// Package logging builds the services' slog loggers.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps LOG_LEVEL values; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup creates a logger writing text to stderr and, when logFile is set,
// JSON lines to that file. The returned cleanup closes the file.
func Setup(service, logFile string, level slog.Level) (*slog.Logger, func() error) {
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if logFile == "" {
		return slog.New(stderrHandler).With("service", service), func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(stderrHandler).With("service", service)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		return logger, func() error { return nil }
	}

	return WithWriters(service, os.Stderr, file, level), file.Close
}

// WithWriters fans out to a text writer and a JSON writer.
func WithWriters(service string, text, jsonOut io.Writer, level slog.Level) *slog.Logger {
	textHandler := slog.NewTextHandler(text, &slog.HandlerOptions{Level: level})
	jsonHandler := slog.NewJSONHandler(jsonOut, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(textHandler, jsonHandler)).With("service", service)
}
