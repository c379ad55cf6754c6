package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/guregu/null"

	"github.com/sumitpatel93/ledger-harness/internal/db"
)

var (
	ErrLeakNotFound     = errors.New("leaked resource not found")
	ErrMissingKey       = errors.New("leaked resource has no private key")
	ErrNoPassphrase     = errors.New("a passphrase is required to store or read private keys")
	ErrUnknownKind      = errors.New("unknown resource kind")
	ErrEmptyEntityID    = errors.New("entity ID cannot be empty")
	ErrAlreadyReclaimed = errors.New("leaked resource was already reclaimed")
)

type LeakModel struct {
	DB         db.ConnectionPool
	Encrypter  PrivateKeyEncrypter
	Passphrase string
}

var _ LeakStore = (*LeakModel)(nil)

func NewLeakModel(dbConnectionPool db.ConnectionPool, encrypter PrivateKeyEncrypter, passphrase string) *LeakModel {
	return &LeakModel{DB: dbConnectionPool, Encrypter: encrypter, Passphrase: passphrase}
}

// Record stores leak and returns the ID of its row. A resource that is already recorded and not
// reclaimed keeps its row: the reason is refreshed and the key replaced when one is given.
func (m *LeakModel) Record(ctx context.Context, leak Leak) (string, error) {
	if leak.Kind != KindTopic && leak.Kind != KindAccount {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, leak.Kind)
	}
	if leak.EntityID == "" {
		return "", ErrEmptyEntityID
	}

	var encryptedKey null.String
	if leak.PrivateKey != "" {
		if m.Passphrase == "" {
			return "", ErrNoPassphrase
		}
		encrypted, err := m.Encrypter.Encrypt(ctx, leak.PrivateKey, m.Passphrase)
		if err != nil {
			return "", fmt.Errorf("encrypting private key of %s: %w", leak.EntityID, err)
		}
		encryptedKey = null.StringFrom(encrypted)
	}

	id, err := db.RunInTransactionWithResult(ctx, m.DB, nil, func(dbTx db.Transaction) (string, error) {
		var existing []string
		const selectQuery = `
			SELECT id FROM leaked_resources
			WHERE kind = ? AND entity_id = ? AND reclaimed_at IS NULL
			LIMIT 1
		`
		if err := dbTx.SelectContext(ctx, &existing, selectQuery, leak.Kind, leak.EntityID); err != nil {
			return "", fmt.Errorf("looking up leaked %s %s: %w", leak.Kind, leak.EntityID, err)
		}

		if len(existing) > 0 {
			const updateQuery = `
				UPDATE leaked_resources
				SET reason = ?, encrypted_private_key = COALESCE(?, encrypted_private_key)
				WHERE id = ?
			`
			if _, err := dbTx.ExecContext(ctx, updateQuery, leak.Reason, encryptedKey, existing[0]); err != nil {
				return "", fmt.Errorf("updating leaked %s %s: %w", leak.Kind, leak.EntityID, err)
			}
			return existing[0], nil
		}

		const insertQuery = `
			INSERT INTO leaked_resources (id, run_id, scenario, kind, entity_id, encrypted_private_key, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		id := uuid.NewString()
		if _, err := dbTx.ExecContext(ctx, insertQuery, id, leak.RunID, leak.Scenario, leak.Kind, leak.EntityID, encryptedKey, leak.Reason); err != nil {
			return "", fmt.Errorf("inserting leaked %s %s: %w", leak.Kind, leak.EntityID, err)
		}
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("recording leaked %s %s: %w", leak.Kind, leak.EntityID, err)
	}

	return id, nil
}

// GetUnreclaimed returns the oldest resources not reclaimed yet. A limit of zero or less returns
// all of them.
func (m *LeakModel) GetUnreclaimed(ctx context.Context, limit int) ([]*LeakedResource, error) {
	if limit <= 0 {
		limit = -1
	}

	const query = `
		SELECT
			id, run_id, scenario, kind, entity_id, encrypted_private_key, reason, reclaim_attempts, created_at, reclaimed_at
		FROM
			leaked_resources
		WHERE
			reclaimed_at IS NULL
		ORDER BY
			created_at ASC, rowid ASC
		LIMIT ?
	`
	var leaks []*LeakedResource
	if err := m.DB.SelectContext(ctx, &leaks, query, limit); err != nil {
		return nil, fmt.Errorf("getting unreclaimed resources: %w", err)
	}
	return leaks, nil
}

func (m *LeakModel) PrivateKey(ctx context.Context, leaked *LeakedResource) (string, error) {
	if !leaked.EncryptedPrivateKey.Valid {
		return "", fmt.Errorf("%w: %s %s", ErrMissingKey, leaked.Kind, leaked.EntityID)
	}
	if m.Passphrase == "" {
		return "", ErrNoPassphrase
	}

	privateKey, err := m.Encrypter.Decrypt(ctx, leaked.EncryptedPrivateKey.String, m.Passphrase)
	if err != nil {
		return "", fmt.Errorf("decrypting private key of %s: %w", leaked.EntityID, err)
	}
	return privateKey, nil
}

func (m *LeakModel) MarkReclaimed(ctx context.Context, id string) error {
	const query = `
		UPDATE leaked_resources SET reclaimed_at = CURRENT_TIMESTAMP WHERE id = ? AND reclaimed_at IS NULL
	`
	res, err := m.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("marking %s as reclaimed: %w", id, err)
	}
	return m.expectOneRow(ctx, res.RowsAffected, id)
}

func (m *LeakModel) IncrementAttempts(ctx context.Context, id string) error {
	const query = `
		UPDATE leaked_resources SET reclaim_attempts = reclaim_attempts + 1 WHERE id = ? AND reclaimed_at IS NULL
	`
	res, err := m.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("incrementing reclaim attempts of %s: %w", id, err)
	}
	return m.expectOneRow(ctx, res.RowsAffected, id)
}

func (m *LeakModel) expectOneRow(ctx context.Context, rowsAffected func() (int64, error), id string) error {
	n, err := rowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = m.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM leaked_resources WHERE id = ?)`, id)
	if err != nil {
		return fmt.Errorf("checking leaked resource %s: %w", id, err)
	}
	if exists {
		return ErrAlreadyReclaimed
	}
	return ErrLeakNotFound
}

func (m *LeakModel) CountUnreclaimed(ctx context.Context) (int64, error) {
	var count int64
	err := m.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM leaked_resources WHERE reclaimed_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("counting unreclaimed resources: %w", err)
	}
	return count, nil
}
