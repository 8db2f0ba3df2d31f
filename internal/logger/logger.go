// Package logger provides structured logging setup for AgentPool.
package logger

import (
	"log/slog"
	"os"

	"github.com/nodus-labs/agentpool/internal/config"
)

// New builds a JSON *slog.Logger writing to stdout. Every record carries
// a "service" attribute so pool and demo logs can be told apart.
func New(cfg config.Logging) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level(cfg.Level),
	})
	return slog.New(h).With(slog.String("service", cfg.Service))
}

// level parses names like "debug" or "WARN"; anything unparseable
// falls back to info.
func level(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}
