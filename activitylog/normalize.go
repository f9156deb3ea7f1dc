package activitylog

import (
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
)

const (
	MetadataKeyFromState = "from_state"
	MetadataKeyToState   = "to_state"
	MetadataKeySession   = "session_id"
)

const (
	defaultChannel = "session"
	defaultActorID = "anonymous"
)

// Entry is the flat shape stored and shipped for a session event.
type Entry struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	Channel    string         `json:"channel,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization.
type Option func(*options)

type options struct {
	channel       string
	actorFallback string
	now           func() time.Time
}

// WithChannel overrides the channel, "session" by default.
func WithChannel(channel string) Option {
	return func(o *options) {
		if channel = strings.TrimSpace(channel); channel != "" {
			o.channel = channel
		}
	}
}

// WithActorFallback sets the actor used when the event carries no user.
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			o.actorFallback = actorID
		}
	}
}

// WithClock sets the clock used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Normalize flattens a controller activity event. The state transition is
// folded into the metadata so downstream stores need no extra columns.
func Normalize(ev authclient.ActivityEvent, opts ...Option) Entry {
	o := buildOptions(opts)

	actor := strings.TrimSpace(ev.UserID)
	if actor == "" {
		actor = o.actorFallback
	}

	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now()
	}

	return Entry{
		ActorID:    actor,
		Verb:       string(ev.EventType),
		Channel:    o.channel,
		SessionID:  ev.SessionID,
		Metadata:   normalizeMetadata(ev),
		OccurredAt: occurredAt.UTC(),
	}
}

func normalizeMetadata(ev authclient.ActivityEvent) map[string]any {
	out := make(map[string]any, len(ev.Metadata)+3)
	for k, v := range ev.Metadata {
		out[k] = v
	}
	if ev.FromState != "" {
		out[MetadataKeyFromState] = string(ev.FromState)
	}
	if ev.ToState != "" {
		out[MetadataKeyToState] = string(ev.ToState)
	}
	if ev.SessionID != "" {
		out[MetadataKeySession] = ev.SessionID
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
