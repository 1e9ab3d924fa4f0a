package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// New builds the process logger. format is "json" or "text"; text output is
// colorized with tint.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		return slog.New(tint.NewHandler(w, &tint.Options{Level: level}))
	}
}
