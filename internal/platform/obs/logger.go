package obs

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var logger atomic.Pointer[logrus.Logger]

// NewLogger builds a JSON logger at the given level and installs it as the
// package logger used by Time. Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	SetLogger(l)
	return l
}

func SetLogger(l *logrus.Logger) {
	logger.Store(l)
}

// Logger returns the package logger, or the logrus standard logger if none was set.
func Logger() *logrus.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return logrus.StandardLogger()
}
