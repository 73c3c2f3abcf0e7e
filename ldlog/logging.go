// Package ldlog provides a leveled logging facade used throughout the SDK. It does not implement
// logging itself; it delegates to a caller-supplied BaseLogger (satisfied directly by the standard
// library's *log.Logger) so that host applications can route SDK output into whatever logging
// framework they already use.
package ldlog

import (
	"log"
	"os"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	// Debug is the lowest logging level; intended for close-grained diagnostic output.
	Debug LogLevel = iota
	// Info is for informational messages about normal operation.
	Info
	// Warn is for recoverable problems.
	Warn
	// Error is for conditions that prevent part of the SDK from working correctly.
	Error
	// None disables output entirely.
	None
)

func (l LogLevel) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "NONE"
	}
}

// BaseLogger is the interface that an underlying logging implementation must support. It is
// satisfied directly by *log.Logger.
type BaseLogger interface {
	Println(values ...interface{})
	Printf(format string, values ...interface{})
}

// Loggers is a facade for leveled logging with an independent BaseLogger per level. The zero value
// is usable and logs at Info level and above to stderr.
type Loggers struct {
	base      BaseLogger
	overrides [4]BaseLogger
	minLevel  LogLevel
	minLevelSet bool
}

func (l *Loggers) loggerFor(level LogLevel) BaseLogger {
	if o := l.overrides[level]; o != nil {
		return o
	}
	if l.base != nil {
		return l.base
	}
	return defaultLogger
}

var defaultLogger = log.New(os.Stderr, "", log.LstdFlags)

// SetBaseLogger sets the same BaseLogger for all levels that do not have a more specific logger
// set via SetBaseLoggerForLevel.
func (l *Loggers) SetBaseLogger(logger BaseLogger) {
	l.base = logger
}

// SetBaseLoggerForLevel sets a distinct BaseLogger for a single level, overriding whatever the
// common base logger is for that level only.
func (l *Loggers) SetBaseLoggerForLevel(level LogLevel, logger BaseLogger) {
	l.overrides[level] = logger
}

// SetMinLevel sets the minimum level that will produce output. Levels below this are no-ops.
func (l *Loggers) SetMinLevel(level LogLevel) {
	l.minLevel = level
	l.minLevelSet = true
}

func (l *Loggers) effectiveMinLevel() LogLevel {
	if !l.minLevelSet {
		return Info
	}
	return l.minLevel
}

// IsDebugEnabled reports whether Debug-level output is currently enabled, so callers can skip
// building an expensive debug string when it would be discarded.
func (l *Loggers) IsDebugEnabled() bool {
	return l.effectiveMinLevel() <= Debug
}

func (l *Loggers) enabled(level LogLevel) bool {
	return l.effectiveMinLevel() <= level
}

func (l *Loggers) println(level LogLevel, values ...interface{}) {
	if !l.enabled(level) {
		return
	}
	l.loggerFor(level).Println(append([]interface{}{level.String() + ":"}, values...)...)
}

func (l *Loggers) printf(level LogLevel, format string, values ...interface{}) {
	if !l.enabled(level) {
		return
	}
	l.loggerFor(level).Printf(level.String()+": "+format, values...)
}

// Debug logs a message at Debug level.
func (l *Loggers) Debug(values ...interface{}) { l.println(Debug, values...) }

// Debugf logs a formatted message at Debug level.
func (l *Loggers) Debugf(format string, values ...interface{}) { l.printf(Debug, format, values...) }

// Info logs a message at Info level.
func (l *Loggers) Info(values ...interface{}) { l.println(Info, values...) }

// Infof logs a formatted message at Info level.
func (l *Loggers) Infof(format string, values ...interface{}) { l.printf(Info, format, values...) }

// Warn logs a message at Warn level.
func (l *Loggers) Warn(values ...interface{}) { l.println(Warn, values...) }

// Warnf logs a formatted message at Warn level.
func (l *Loggers) Warnf(format string, values ...interface{}) { l.printf(Warn, format, values...) }

// Error logs a message at Error level.
func (l *Loggers) Error(values ...interface{}) { l.println(Error, values...) }

// Errorf logs a formatted message at Error level.
func (l *Loggers) Errorf(format string, values ...interface{}) { l.printf(Error, format, values...) }
