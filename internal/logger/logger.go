package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu        sync.RWMutex
	debugMode bool
	log       zerolog.Logger
)

func init() {
	log = newLogger(os.Stderr, zerolog.InfoLevel)
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: w != io.Writer(os.Stderr)}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func SetDebugMode(enabled bool) {
	mu.Lock()
	debugMode = enabled
	if enabled {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}
	mu.Unlock()
	if enabled {
		Debug("Debug mode enabled")
	}
}

// SetOutput redirects all log output to w. The browse command uses it to keep
// log lines off the terminal UI.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	level := zerolog.InfoLevel
	if debugMode {
		level = zerolog.DebugLevel
	}
	log = newLogger(w, level)
}

func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug(format string, args ...interface{}) {
	l := current()
	l.Debug().Msg(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	l := current()
	l.Info().Msg(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	l := current()
	l.Error().Msg(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	l := current()
	l.Warn().Msg(fmt.Sprintf(format, args...))
}

// Request logging function for HTTP requests
func LogRequest(method, path, remoteAddr string) {
	l := current()
	l.Debug().Str("method", method).Str("path", path).Str("remote", remoteAddr).Msg("HTTP request")
}

// Response logging function for HTTP responses
func LogResponse(method, path string, statusCode int, duration time.Duration) {
	l := current()
	l.Debug().Str("method", method).Str("path", path).Int("status", statusCode).Dur("duration", duration).Msg("HTTP response")
}
