package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger tagged with the service name.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a JSON logger. An empty level falls back to LOG_LEVEL, then info.
func New(service, level string) *Logger {
	return NewWithOutput(service, level, os.Stdout)
}

// NewWithOutput is New with an explicit writer, used by tests.
func NewWithOutput(service, level string, out io.Writer) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: log, service: service}
}

// Entry returns an entry carrying the service field; components log through it.
func (l *Logger) Entry() *logrus.Entry {
	return l.WithField("service", l.service)
}

// Component returns an entry for a named component of the service.
func (l *Logger) Component(name string) *logrus.Entry {
	return l.Entry().WithField("component", name)
}

// WithUserID adds the authenticated user to an entry.
func (l *Logger) WithUserID(userID string) *logrus.Entry {
	return l.Entry().WithField("user_id", userID)
}

// Discard returns an entry that writes nowhere, for tests and optional loggers.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// EchoMiddleware logs every HTTP request handled by echo.
func EchoMiddleware(l *Logger) echo.MiddlewareFunc {
	entry := l.Component("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := logrus.Fields{
				"method":      c.Request().Method,
				"path":        c.Path(),
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if err != nil {
				entry.WithFields(fields).WithError(err).Warn("http request failed")
			} else {
				entry.WithFields(fields).Debug("http request completed")
			}
			return nil
		}
	}
}
