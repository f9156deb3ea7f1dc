package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultSlot names the row used when a single client shares the database.
const DefaultSlot = "default"

// SessionTokenModel is the Bun model for stored session tokens.
type SessionTokenModel struct {
	bun.BaseModel `bun:"table:session_tokens"`

	ID        uuid.UUID `bun:"id,notnull,type:uuid"`
	Slot      string    `bun:"slot,pk"`
	Token     string    `bun:"token,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Bun stores the token in a session_tokens row keyed by slot.
type Bun struct {
	db   bun.IDB
	slot string
	now  func() time.Time
}

// NewBun returns a store writing to the given slot.
func NewBun(db bun.IDB, slot string) *Bun {
	if slot == "" {
		slot = DefaultSlot
	}
	return &Bun{db: db, slot: slot, now: time.Now}
}

// CreateTable creates the session_tokens table if needed.
func (b *Bun) CreateTable(ctx context.Context) error {
	_, err := b.db.NewCreateTable().
		Model((*SessionTokenModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Get implements authclient.TokenStore.
func (b *Bun) Get(ctx context.Context) (string, bool, error) {
	var model SessionTokenModel
	err := b.db.NewSelect().
		Model(&model).
		Where("slot = ?", b.slot).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session token").
			WithMetadata(map[string]any{"slot": b.slot})
	}
	return model.Token, model.Token != "", nil
}

// Set implements authclient.TokenStore.
func (b *Bun) Set(ctx context.Context, token string) error {
	now := b.now().UTC()
	model := &SessionTokenModel{
		ID:        uuid.New(),
		Slot:      b.slot,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := b.db.NewInsert().
		Model(model).
		On("CONFLICT (slot) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save session token").
			WithMetadata(map[string]any{"slot": b.slot})
	}
	return nil
}

// Remove implements authclient.TokenStore.
func (b *Bun) Remove(ctx context.Context) error {
	_, err := b.db.NewDelete().
		Model((*SessionTokenModel)(nil)).
		Where("slot = ?", b.slot).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete session token").
			WithMetadata(map[string]any{"slot": b.slot})
	}
	return nil
}
