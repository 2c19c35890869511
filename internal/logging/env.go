package logging

import (
	"io"
	"log/slog"
)

type LoggerConfig struct {
	Level, Format, Service string
}

// FromEnv reads LOG_LEVEL and LOG_FORMAT through getenv.
func FromEnv(service string, getenv func(string) string) *LoggerConfig {
	return &LoggerConfig{
		Level:   lookup(getenv, "LOG_LEVEL", "warn"),
		Format:  lookup(getenv, "LOG_FORMAT", "text"),
		Service: service,
	}
}

func (c *LoggerConfig) Build(out io.Writer) *slog.Logger {
	return New(Options{Level: c.Level, Format: c.Format, Service: c.Service, Output: out})
}

func lookup(getenv func(string) string, k, def string) string {
	if getenv == nil {
		return def
	}
	if v := getenv(k); v != "" {
		return v
	}
	return def
}
