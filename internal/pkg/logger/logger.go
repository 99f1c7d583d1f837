package logger

import (
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Level is the severity of a log record.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Handler receives every SDK log record. Installing one replaces the
// default sink.
type Handler func(level Level, message string)

var (
	mu      sync.RWMutex
	handler Handler
)

// SetHandler installs h as the log sink. A nil h restores the default.
func SetHandler(h Handler) {
	mu.Lock()
	handler = h
	mu.Unlock()
}

func emit(level Level, format string, args ...interface{}) {
	mu.RLock()
	h := handler
	mu.RUnlock()

	if h != nil {
		h(level, fmt.Sprintf(format, args...))
		return
	}

	switch level {
	case LevelDebug:
		log.Debugf(format, args...)
	case LevelInfo:
		log.Infof(format, args...)
	case LevelWarn:
		log.Warnf(format, args...)
	default:
		log.Errorf(format, args...)
	}
}

func Debugf(format string, args ...interface{}) { emit(LevelDebug, format, args...) }
func Infof(format string, args ...interface{})  { emit(LevelInfo, format, args...) }
func Warnf(format string, args ...interface{})  { emit(LevelWarn, format, args...) }
func Errorf(format string, args ...interface{}) { emit(LevelError, format, args...) }
