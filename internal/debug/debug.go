package debug

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (run, stem, files written)
	LevelLive    = 2 // Live info (acquisition begin/end, frames)
	LevelVerbose = 3 // Verbose (every feature write, clamps)
	LevelTrace   = 4 // Trace (SDK calls, GPIO)
)

// Fields is an alias so callers don't need to import logrus for structured fields.
type Fields = logrus.Fields

var (
	level  int
	logger = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (stem, rounds, files written)
// 2 = live info (acquisition, frames)
// 3 = verbose (feature writes, exposure clamps)
// 4 = trace (SDK calls, GPIO)
func Init(debugLevel int) {
	level = debugLevel
	logger.SetLevel(logrusLevel(debugLevel))

	logger.SetFormatter(&logrus.TextFormatter{})
	if f, ok := logger.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.StampMilli,
		})
	}
}

func logrusLevel(debugLevel int) logrus.Level {
	switch {
	case debugLevel <= LevelOff:
		// Warnings and errors are never silenced.
		return logrus.WarnLevel
	case debugLevel <= LevelLive:
		return logrus.InfoLevel
	case debugLevel == LevelVerbose:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// SetOutput redirects all debug output.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// With returns an entry carrying structured fields (camera serial, bracket, ...).
func With(fields Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo {
		logger.Infof(format, args...)
	}
}

// Summary prints an important summary banner.
func Summary(title string) {
	if level >= LevelInfo {
		logger.Info("═══════════════════════════════════════")
		logger.Infof("  %s", title)
		logger.Info("═══════════════════════════════════════")
	}
}

// Value prints a named value (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo {
		logger.WithField(name, value).Info("value")
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive {
		logger.Infof(format, args...)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	logger.Debugf("%s: %+v", name, v)
}

// Section prints a section separator (level 3).
func Section(name string) {
	logger.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Debugf("  %s", name)
	logger.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	logger.WithField("step", num).Debug(description)
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace, SDK).
func Trace(format string, args ...interface{}) {
	logger.Tracef(format, args...)
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	logger.WithFields(logrus.Fields{
		"pin":   pin,
		"value": value,
	}).Trace(operation)
}

// --- General functions ---

// Warn prints a non-fatal problem. Always shown.
func Warn(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// Error prints an error. Always shown.
func Error(err error) {
	logger.Error(err)
}
