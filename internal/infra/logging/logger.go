package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds the application logger. Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// GinWriter adapts the logger to gin's request log writer.
func GinWriter(log logrus.FieldLogger) io.Writer {
	return &ginLogWriter{log: log.WithField("source", "gin")}
}

type ginLogWriter struct {
	log logrus.FieldLogger
}

func (w *ginLogWriter) Write(p []byte) (int, error) {
	w.log.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// GooseLogger adapts the logger to goose. Fatalf is downgraded so a
// failed migration is returned to the caller instead of exiting.
type GooseLogger struct {
	Log logrus.FieldLogger
}

func (g GooseLogger) Fatalf(format string, v ...interface{}) {
	g.Log.WithField("source", "goose").Errorf(strings.TrimSpace(format), v...)
}

func (g GooseLogger) Printf(format string, v ...interface{}) {
	g.Log.WithField("source", "goose").Infof(strings.TrimSpace(format), v...)
}
