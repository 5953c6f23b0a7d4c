// Package logger provides structured logging for the lottery service layer.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a component-scoped structured logger. It embeds a logrus entry so
// call sites can chain WithField/WithError and the usual leveled methods.
type Logger struct {
	*logrus.Entry
}

// New creates a logger for the named component at the given level.
func New(component string, level logrus.Level) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)
	base.SetLevel(level)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return &Logger{Entry: base.WithField("component", component)}
}

// NewWithLevel creates a logger parsing a textual level such as "debug".
// Unknown levels fall back to info.
func NewWithLevel(component, level string) *Logger {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	return New(component, parsed)
}

// NewDefault creates a logger for the named component using the level from the
// LOG_LEVEL environment variable, defaulting to info.
func NewDefault(component string) *Logger {
	return New(component, levelFromEnv())
}

// WithComponent returns a derived logger scoped to a sub-component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", component)}
}

func levelFromEnv() logrus.Level {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	switch raw {
	case "debug", "trace":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
