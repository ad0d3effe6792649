// Package applog provides the structured, leveled logging used across
// every layer of the engine: timestamp, pid, calling function name, and an
// optional key/value context, written as a single line to stdout/stderr.
package applog

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelStrings = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var pid = os.Getpid()

// Fields is a bag of structured context appended to a log line.
type Fields map[string]interface{}

// Logger is a minimal leveled logger. The zero value logs every level
// from DEBUG up; build one with New to set a different minimum level.
type Logger struct {
	minLevel Level
}

// New creates a Logger that drops anything below minLevel.
func New(minLevel Level) *Logger {
	return &Logger{minLevel: minLevel}
}

var std = New(INFO)

// SetLevel adjusts the package-level default logger's minimum level.
func SetLevel(l Level) { std.minLevel = l }

// ParseLevel maps a config string (DEBUG/INFO/WARN/ERROR) to a Level,
// defaulting to INFO for anything unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func callerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	full := runtime.FuncForPC(pc).Name()
	parts := strings.Split(full, "/")
	name := parts[len(parts)-1]
	if idx := strings.LastIndex(name, "."); idx != -1 {
		return name[idx+1:]
	}
	return name
}

func format(level Level, fn, msg string, fields Fields) string {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	var ctx string
	if len(fields) > 0 {
		pairs := make([]string, 0, len(fields))
		for k, v := range fields {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
		}
		ctx = " | " + strings.Join(pairs, " ")
	}
	return fmt.Sprintf("[%s] [pid:%d] [%s] %s: %s%s", ts, pid, fn, levelStrings[level], msg, ctx)
}

func (l *Logger) log(level Level, msg string, fields Fields) {
	if level < l.minLevel {
		return
	}
	line := format(level, callerName(4), msg, fields)
	if level >= ERROR {
		fmt.Fprintln(os.Stderr, line)
	} else {
		fmt.Fprintln(os.Stdout, line)
	}
}

func (l *Logger) Debug(msg string, fields ...Fields) { l.log(DEBUG, msg, firstOrNil(fields)) }
func (l *Logger) Info(msg string, fields ...Fields)  { l.log(INFO, msg, firstOrNil(fields)) }
func (l *Logger) Warn(msg string, fields ...Fields)  { l.log(WARN, msg, firstOrNil(fields)) }
func (l *Logger) Error(msg string, fields ...Fields) { l.log(ERROR, msg, firstOrNil(fields)) }

func firstOrNil(fields []Fields) Fields {
	if len(fields) == 0 {
		return nil
	}
	return fields[0]
}

// Package-level convenience wrappers over the default logger.
func Debug(msg string, fields ...Fields) { std.Debug(msg, fields...) }
func Info(msg string, fields ...Fields)  { std.Info(msg, fields...) }
func Warn(msg string, fields ...Fields)  { std.Warn(msg, fields...) }
func Error(msg string, fields ...Fields) { std.Error(msg, fields...) }
