// Package logging wraps zerolog behind a small key-value API so call sites
// stay free of the logging library's builder chains.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// InitLogger configures the global logger. When file is empty, logs go to
// stderr only; otherwise they are written to a rotated file as well.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	var w io.Writer = os.Stderr
	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		}
		w = io.MultiWriter(os.Stderr, rotated)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	mu.Lock()
	logger = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	mu.Unlock()
}

// SetLogLevel changes the level of the current logger. Unknown levels fall
// back to info.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	logger = logger.Level(lvl)
	mu.Unlock()
}

// SetLoggerForTest replaces the global logger. Intended for tests that need
// to capture output.
func SetLoggerForTest(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func withFields(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		e = e.Interface(key, kv[i+1])
	}
	return e
}

// Debug logs at debug level with alternating key-value pairs.
func Debug(msg string, kv ...interface{}) {
	l := current()
	withFields(l.Debug(), kv).Msg(msg)
}

// Info logs at info level with alternating key-value pairs.
func Info(msg string, kv ...interface{}) {
	l := current()
	withFields(l.Info(), kv).Msg(msg)
}

// Warn logs at warn level with alternating key-value pairs.
func Warn(msg string, kv ...interface{}) {
	l := current()
	withFields(l.Warn(), kv).Msg(msg)
}

// Error logs at error level with alternating key-value pairs.
func Error(msg string, kv ...interface{}) {
	l := current()
	withFields(l.Error(), kv).Msg(msg)
}
