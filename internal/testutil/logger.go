package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// LogRecord is a single captured log call.
type LogRecord struct {
	Level   string
	Message string
	Args    []any
}

// RecordingLogger captures log calls so tests can assert on warnings and
// errors (e.g. one warning per corrupt line skipped). Safe for concurrent
// use; the relay goroutine logs from its own goroutine.
type RecordingLogger struct {
	mu      sync.Mutex
	records []LogRecord
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, LogRecord{Level: level, Message: msg, Args: args})
}

// Records returns a copy of all captured records.
func (l *RecordingLogger) Records() []LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogRecord, len(l.records))
	copy(out, l.records)
	return out
}

// CountLevel returns how many records were logged at level.
func (l *RecordingLogger) CountLevel(level string) int {
	n := 0
	for _, r := range l.Records() {
		if r.Level == level {
			n++
		}
	}
	return n
}

// HasMessage reports whether any record's message contains substr.
func (l *RecordingLogger) HasMessage(substr string) bool {
	for _, r := range l.Records() {
		if strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

// String renders all records for failure messages.
func (l *RecordingLogger) String() string {
	out := ""
	for _, r := range l.Records() {
		out += fmt.Sprintf("%s %s %v\n", r.Level, r.Message, r.Args)
	}
	return out
}
