// Package obs provides structured, leveled logging shared across the
// portal's components, plus a lightweight activity hook other
// components can subscribe to (used by the session manager to surface
// rate-limit/unauthorized drop counters, and by the portal engine to
// trace method calls, without an import cycle back into a UI).
package obs

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	Logger *log.Logger

	activityHook func(level, message string)
)

func init() {
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	SetLevel(os.Getenv("LOG_LEVEL"))
}

// SetLevel sets the log level from a string (case-insensitive); an
// empty or unrecognized value defaults to info, matching the teacher's
// logger package.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		Logger.SetLevel(log.DebugLevel)
	case "WARN", "WARNING":
		Logger.SetLevel(log.WarnLevel)
	case "ERROR":
		Logger.SetLevel(log.ErrorLevel)
	case "FATAL":
		Logger.SetLevel(log.FatalLevel)
	default:
		Logger.SetLevel(log.InfoLevel)
	}
}

// SetActivityHook installs a callback invoked alongside every Debug/Info/
// Warn/Error/Fatal log line (for Fatal, before the process exits). Components that want to surface counters (e.g.
// the session manager's per-session drop counters) without depending on
// a specific UI can call NotifyActivity directly instead of logging.
func SetActivityHook(hook func(level, message string)) {
	activityHook = hook
}

// NotifyActivity invokes the activity hook, if one is installed, without
// also emitting a log line. Used for high-frequency events (e.g. rate
// limit drops) that should reach a UI counter but would otherwise flood
// the log.
func NotifyActivity(level, message string) {
	if activityHook != nil {
		activityHook(level, message)
	}
}

func notify(level, msg string) {
	if activityHook != nil {
		activityHook(level, msg)
	}
}

func Info(args ...interface{})  { Logger.Info(args...); notify("INFO", joinArgs(args)) }
func Debug(args ...interface{}) { Logger.Debug(args...); notify("DEBUG", joinArgs(args)) }
func Warn(args ...interface{})  { Logger.Warn(args...); notify("WARN", joinArgs(args)) }
func Error(args ...interface{}) { Logger.Error(args...); notify("ERROR", joinArgs(args)) }
func Fatal(args ...interface{}) { notify("FATAL", joinArgs(args)); Logger.Fatal(args...) }

func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
	notify("INFO", sprintf(format, args...))
}

func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
	notify("DEBUG", sprintf(format, args...))
}

func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
	notify("WARN", sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
	notify("ERROR", sprintf(format, args...))
}

func Fatalf(format string, args ...interface{}) {
	notify("FATAL", sprintf(format, args...))
	Logger.Fatalf(format, args...)
}

func joinArgs(args []interface{}) string { return fmt.Sprint(args...) }
func sprintf(format string, args ...interface{}) string { return fmt.Sprintf(format, args...) }
