package authclient_test

import (
	"fmt"
	"sync"
)

type logCall struct {
	level   string
	message string
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: fmt.Sprintf(format, args...)})
}

func (l *captureLogger) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record("error", format, args...) }

func (l *captureLogger) has(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.level == level {
			return true
		}
	}
	return false
}
