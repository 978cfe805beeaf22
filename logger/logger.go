// Package logger provides leveled key/value logging on top of logrus.
// Everything goes to stderr: stdout is reserved for exported data.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu    sync.RWMutex
	base  = newLogger()
	entry = logrus.NewEntry(base)
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	return l
}

// Init sets the minimum level. Unknown levels fall back to info.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	if err != nil {
		Warn("Unknown log level, using info", "level", level)
	}
}

// SetJSON switches between the text and JSON formatters.
func SetJSON(enabled bool) {
	if enabled {
		base.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
}

// SetOutput redirects log output. Used by tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// WithRun tags every following line with the given run id.
func WithRun(id string) {
	mu.Lock()
	defer mu.Unlock()
	entry = logrus.NewEntry(base).WithField("run_id", id)
}

func Debug(msg string, args ...any) { current().WithFields(fields(args)).Debug(msg) }
func Info(msg string, args ...any)  { current().WithFields(fields(args)).Info(msg) }
func Warn(msg string, args ...any)  { current().WithFields(fields(args)).Warn(msg) }
func Error(msg string, args ...any) { current().WithFields(fields(args)).Error(msg) }

func current() *logrus.Entry {
	mu.RLock()
	defer mu.RUnlock()
	return entry
}

// fields turns alternating key/value args into logrus fields.
// A dangling value is kept under "!BADKEY".
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		f[key] = args[i+1]
	}
	return f
}
