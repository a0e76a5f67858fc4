package testutil

import (
	"fmt"
	"sync"

	"github.com/trezcool/coachdesk/core"
)

// Logger is a core.Logger that records entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	entries []string // "LEVEL: msg"
	levels  map[string]int
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{levels: make(map[string]int)}
}

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("%s: %s", level, msg))
	l.levels[level]++
}

// Count returns the number of entries logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels[level]
}

func (l *Logger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }
