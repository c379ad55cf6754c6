// Package store persists the ledger resources a scenario teardown could not reclaim, so that a later
// sweep can retry them.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/guregu/null"
)

type ResourceKind string

const (
	KindTopic   ResourceKind = "topic"
	KindAccount ResourceKind = "account"
)

type LeakedResource struct {
	ID                  string       `db:"id"`
	RunID               string       `db:"run_id"`
	Scenario            string       `db:"scenario"`
	Kind                ResourceKind `db:"kind"`
	EntityID            string       `db:"entity_id"`
	EncryptedPrivateKey null.String  `db:"encrypted_private_key"`
	Reason              string       `db:"reason"`
	ReclaimAttempts     int          `db:"reclaim_attempts"`
	CreatedAt           time.Time    `db:"created_at"`
	ReclaimedAt         sql.NullTime `db:"reclaimed_at"`
}

// Leak describes a resource to record. PrivateKey is stored encrypted and may be empty.
type Leak struct {
	RunID      string
	Scenario   string
	Kind       ResourceKind
	EntityID   string
	PrivateKey string
	Reason     string
}

type LeakStore interface {
	Record(ctx context.Context, leak Leak) (string, error)
	GetUnreclaimed(ctx context.Context, limit int) ([]*LeakedResource, error)
	PrivateKey(ctx context.Context, leaked *LeakedResource) (string, error)
	MarkReclaimed(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string) error
	CountUnreclaimed(ctx context.Context) (int64, error)
}
