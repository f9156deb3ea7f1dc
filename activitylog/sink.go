package activitylog

import (
	"context"
	"errors"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityModel is the Bun model for stored session events.
type ActivityModel struct {
	bun.BaseModel `bun:"table:session_activity"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid"`
	ActorID    string         `bun:"actor_id,notnull"`
	Verb       string         `bun:"verb,notnull"`
	Channel    string         `bun:"channel"`
	SessionID  string         `bun:"session_id"`
	Metadata   map[string]any `bun:"metadata"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
}

// BunSink persists activity events, one row each.
type BunSink struct {
	db   bun.IDB
	opts []Option
}

var _ authclient.ActivitySink = (*BunSink)(nil)

// NewBunSink returns a sink writing to the session_activity table.
func NewBunSink(db bun.IDB, opts ...Option) *BunSink {
	return &BunSink{db: db, opts: opts}
}

// CreateTable creates the session_activity table if needed.
func (s *BunSink) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*ActivityModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Record implements authclient.ActivitySink.
func (s *BunSink) Record(ctx context.Context, ev authclient.ActivityEvent) error {
	entry := Normalize(ev, s.opts...)
	model := &ActivityModel{
		ID:         uuid.New(),
		ActorID:    entry.ActorID,
		Verb:       entry.Verb,
		Channel:    entry.Channel,
		SessionID:  entry.SessionID,
		Metadata:   entry.Metadata,
		OccurredAt: entry.OccurredAt,
	}
	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// Recent returns the latest entries, newest first.
func (s *BunSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []ActivityModel
	err := s.db.NewSelect().
		Model(&models).
		Order("occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(models))
	for _, m := range models {
		out = append(out, Entry{
			ActorID:    m.ActorID,
			Verb:       m.Verb,
			Channel:    m.Channel,
			SessionID:  m.SessionID,
			Metadata:   m.Metadata,
			OccurredAt: m.OccurredAt,
		})
	}
	return out, nil
}

// LogSink writes normalized events to a logger.
func LogSink(logger authclient.Logger, opts ...Option) authclient.ActivitySink {
	return authclient.ActivitySinkFunc(func(_ context.Context, ev authclient.ActivityEvent) error {
		entry := Normalize(ev, opts...)
		logger.Info("activity %s actor=%s %s", entry.Verb, entry.ActorID, print.MaybePrettyJSON(entry.Metadata))
		return nil
	})
}

// Fanout records to every sink and joins their errors.
func Fanout(sinks ...authclient.ActivitySink) authclient.ActivitySink {
	return authclient.ActivitySinkFunc(func(ctx context.Context, ev authclient.ActivityEvent) error {
		var errs []error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Record(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
