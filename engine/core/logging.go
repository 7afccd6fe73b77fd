package core

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	if singleton == nil {
		once.Do(
			func() {
				l := log.NewWithOptions(os.Stderr, log.Options{
					ReportCaller:    true,
					ReportTimestamp: true,
					TimeFormat:      time.RFC3339,
					Prefix:          "Lumen 🔦 ",
				})
				l.SetLevel(log.DebugLevel)
				singleton = &logger{l}
			})
	}
	return singleton
}

// LogLevel names accepted by SetLogLevel, as written in the config file.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SetLogLevel changes the level of the shared logger. Unknown names fall back to info.
func SetLogLevel(level LogLevel) {
	lvl, err := log.ParseLevel(strings.ToLower(string(level)))
	if err != nil {
		getLogger().Warnf("unknown log level %q, using info", level)
		lvl = log.InfoLevel
	}
	getLogger().SetLevel(lvl)
}

func LogDebug(msg string, args ...interface{}) {
	l := getLogger()
	l.Helper()
	l.Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	l := getLogger()
	l.Helper()
	l.Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	l := getLogger()
	l.Helper()
	l.Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	l := getLogger()
	l.Helper()
	l.Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	l := getLogger()
	l.Helper()
	l.Fatalf(msg, args...)
}
