package telemetry

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.Out = out
	l.Formatter = &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
			logrus.FieldKeyMsg:  "msg",
		},
	}
	l.Level = logrus.InfoLevel
	return l
}

// SetOutput redirects log lines, mainly for tests. It returns a restore func.
func SetOutput(out io.Writer) func() {
	mu.Lock()
	prev := logger
	logger = newLogger(out)
	logger.Level = prev.Level
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// SetLevel accepts logrus level names; unknown names leave the level unchanged.
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return
	}
	mu.Lock()
	logger.Level = parsed
	mu.Unlock()
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	entry(fields).Info(msg)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	entry(fields).Warn(msg)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	entry(fields).Error(msg)
}

func entry(fields map[string]any) *logrus.Entry {
	mu.RLock()
	l := logger
	mu.RUnlock()
	return l.WithFields(logrus.Fields(fields))
}
