// Package log adapts the teacher repo's utils/log helper to a per-Kernel logger
// instead of a package-level singleton.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// BuildLogger returns a JSON-handler slog.Logger at the given level ("debug",
// "info", "warn", "error"; anything else defaults to info).
func BuildLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLevel(level),
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

func IntAttr(key string, val int) slog.Attr {
	return slog.Int(key, val)
}

func Int64Attr(key string, val int64) slog.Attr {
	return slog.Int64(key, val)
}

func StringAttr(key, val string) slog.Attr {
	return slog.String(key, val)
}

func AnyAttr(key string, val any) slog.Attr {
	return slog.Any(key, val)
}
