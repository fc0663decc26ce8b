package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

type Config struct {
	LogFilePath  string
	ConsoleLevel slog.Level
	FileLevel    slog.Level
	Console      io.Writer
}

// ParseLevel accepts slog level names plus "trace", which maps below debug.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return slog.LevelDebug - 4, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Init installs the default slog logger. Console output is text, file output
// is JSON. The returned closer releases the log file.
func Init(cfg Config) (io.Closer, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: cfg.ConsoleLevel}),
	}

	var closer io.Closer = nopCloser{}
	var err error
	if cfg.LogFilePath != "" {
		f, ferr := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if ferr != nil {
			err = fmt.Errorf("failed to open log file: %w", ferr)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.FileLevel}))
			closer = f
		}
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
	return closer, err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
