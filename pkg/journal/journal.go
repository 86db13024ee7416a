// Package journal keeps an append-only record of lifecycle actions sent to
// the chain. Quotes are never journaled.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusDryRun    Status = "dry-run"
	// StatusUnconfirmed is a transaction that was broadcast but not seen at
	// the requested commitment before the deadline.
	StatusUnconfirmed Status = "unconfirmed"
)

// Entry is one lifecycle action.
type Entry struct {
	ID               string    `json:"id"`
	Time             time.Time `json:"time"`
	Action           string    `json:"action"`
	Pool             string    `json:"pool"`
	PositionMint     string    `json:"position_mint"`
	Signature        string    `json:"signature,omitempty"`
	Status           Status    `json:"status"`
	Steps            []string  `json:"steps,omitempty"`
	ProgramErrorCode *uint32   `json:"program_error_code,omitempty"`
	Error            string    `json:"error,omitempty"`
}

func NewEntry(action, pool, positionMint string) Entry {
	return Entry{
		ID:           uuid.NewString(),
		Time:         time.Now().UTC(),
		Action:       action,
		Pool:         pool,
		PositionMint: positionMint,
	}
}

// Journal persists entries.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Recent(context.Context, int) ([]Entry, error) { return nil, nil }

func (Nop) Close() error { return nil }
