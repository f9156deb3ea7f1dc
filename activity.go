package authclient

import (
	"context"
	"time"
)

// ActivityEventType enumerates session lifecycle events.
type ActivityEventType string

const (
	ActivityEventInitialized  ActivityEventType = "session.initialized"
	ActivityEventLogin        ActivityEventType = "session.login"
	ActivityEventLoginFailure ActivityEventType = "session.login_failed"
	ActivityEventLogout       ActivityEventType = "session.logout"
	ActivityEventExpired      ActivityEventType = "session.expired"
	ActivityEventVerifyFailed ActivityEventType = "session.verify_failed"
)

// ActivityEvent captures audit friendly information about a transition.
type ActivityEvent struct {
	EventType  ActivityEventType
	SessionID  string
	UserID     string
	FromState  State
	ToState    State
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
