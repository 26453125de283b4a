package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

const secretMask = "********"

var (
	// stdout carries the result document, so log lines go to stderr
	defaultLogger = log.New(os.Stderr, "", log.LstdFlags)

	mu       sync.RWMutex
	minLevel = INFO
	secrets  []string
)

func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

func SetFlags(flag int) {
	defaultLogger.SetFlags(flag)
}

func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = level
}

// ParseLevel maps a level name (debug, info, warn, error) to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}

	return INFO, fmt.Errorf("unknown log level %q", name)
}

// RegisterSecret makes the logger replace every occurrence of value with a mask.
func RegisterSecret(value string) {
	if value == "" {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	for _, s := range secrets {
		if s == value {
			return
		}
	}

	secrets = append(secrets, value)
}

// ResetSecrets forgets every registered secret.
func ResetSecrets() {
	mu.Lock()
	defer mu.Unlock()
	secrets = nil
}

// Mask returns s with every registered secret replaced.
func Mask(s string) string {
	mu.RLock()
	defer mu.RUnlock()

	for _, secret := range secrets {
		s = strings.ReplaceAll(s, secret, secretMask)
	}

	return s
}

// Sanitize strips newlines and control characters from user-provided values
// so they cannot forge extra log lines.
func Sanitize(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			result.WriteRune(' ')
		case r >= 32:
			result.WriteRune(r)
		}
	}

	return result.String()
}

func enabled(level LogLevel) bool {
	mu.RLock()
	defer mu.RUnlock()
	return level >= minLevel
}

func formatMessage(level LogLevel, format string, args ...interface{}) string {
	levelStr := ""
	switch level {
	case DEBUG:
		levelStr = "DEBUG"
	case INFO:
		levelStr = "INFO"
	case WARN:
		levelStr = "WARN"
	case ERROR:
		levelStr = "ERROR"
	case FATAL:
		levelStr = "FATAL"
	}

	msg := Mask(fmt.Sprintf(format, args...))
	return fmt.Sprintf("[%s] [SFTPFIND] %s", levelStr, msg)
}

func Debug(format string, args ...interface{}) {
	if enabled(DEBUG) {
		defaultLogger.Println(formatMessage(DEBUG, format, args...))
	}
}

func Info(format string, args ...interface{}) {
	if enabled(INFO) {
		defaultLogger.Println(formatMessage(INFO, format, args...))
	}
}

func Warn(format string, args ...interface{}) {
	if enabled(WARN) {
		defaultLogger.Println(formatMessage(WARN, format, args...))
	}
}

func Error(format string, args ...interface{}) {
	if enabled(ERROR) {
		defaultLogger.Println(formatMessage(ERROR, format, args...))
	}
}

func Fatal(format string, args ...interface{}) {
	defaultLogger.Fatal(formatMessage(FATAL, format, args...))
}
