package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and optional rotating file output.
type Config struct {
	Level string
	File  string
}

// New builds the process logger. Output always goes to stdout and, when a
// file is configured, to a rotating log file as well.
func New(cfg Config) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err == nil {
			rotator := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     14,
				Compress:   true,
			}
			out = io.MultiWriter(os.Stdout, rotator)
			closer = rotator
		}
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(level), closer
}

// Component returns a sub-logger tagged with a component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
