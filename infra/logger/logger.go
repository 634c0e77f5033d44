// Package logger adapts rs/zerolog to the core logging interface. Output is
// JSON lines by default; APP_ENV=dev switches to a human-readable console
// writer for local runs.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	corelogger "evroute/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger tagged with the given component field.
func New(component string) Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).With().Timestamp().Str("component", component).Logger()
	return &zlog{z: z}
}

// SetGlobalLevel adjusts the process-wide minimum log level. Levels below it
// are dropped by every Logger returned from New, past and future.
func SetGlobalLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// zlog routes the core interface onto a component-scoped zerolog.Logger.
type zlog struct {
	z zerolog.Logger
}

func (l *zlog) Debugf(format string, args ...any) { l.z.Debug().Msgf(format, args...) }

func (l *zlog) Debugw(msg string, fields map[string]any) {
	l.z.Debug().Fields(fields).Msg(msg)
}

func (l *zlog) Infof(format string, args ...any)  { l.z.Info().Msgf(format, args...) }
func (l *zlog) Warnf(format string, args ...any)  { l.z.Warn().Msgf(format, args...) }
func (l *zlog) Errorf(format string, args ...any) { l.z.Error().Msgf(format, args...) }
