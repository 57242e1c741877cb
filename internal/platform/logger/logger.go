// Package logger は設定から slog.Logger を構築します。
package logger

import (
	"io"
	"log/slog"

	"github.com/Elzohary/unifiedcontract/internal/platform/config"
)

// New は logging 設定に従った slog.Logger を生成します。
func New(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", "unifiedcontract"))
}

// Discard は出力を捨てる Logger を返します。テストや未設定時に使用します。
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
