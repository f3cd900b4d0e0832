// Package outbox stores customer notifications in the same transaction as the
// state change that produced them and relays them to the notification queue.
package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type Entry struct {
	Notification domain.Notification
	Attempts     int
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Begin opens a transaction and locks up to limit pending rows in it. Rows
// already attempted maxAttempts times are left alone.
func (r *Repository) Begin(ctx context.Context, limit, maxAttempts int) (Batch, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	entries, err := claimPending(ctx, tx, limit, maxAttempts)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return &sqlBatch{tx: tx, entries: entries}, nil
}

// Enqueue records n inside the caller's transaction.
func Enqueue(ctx context.Context, tx *sql.Tx, n domain.Notification) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, order_id, recipient, subject, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.OrderID, n.Recipient, n.Subject, n.Body, n.CreatedAt)
	return err
}

// Rows locked by a concurrent relay are skipped. Fresh rows sort ahead of
// ones that keep failing.
func claimPending(ctx context.Context, tx *sql.Tx, limit, maxAttempts int) ([]Entry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, order_id, recipient, subject, body, created_at, attempts
		FROM notification_outbox
		WHERE dispatched_at IS NULL AND attempts < $2
		ORDER BY attempts, created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		n := &e.Notification
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Recipient, &n.Subject, &n.Body, &n.CreatedAt, &e.Attempts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type sqlBatch struct {
	tx      *sql.Tx
	entries []Entry
}

func (b *sqlBatch) Entries() []Entry { return b.entries }

func (b *sqlBatch) Commit() error { return b.tx.Commit() }

func (b *sqlBatch) Rollback() error { return b.tx.Rollback() }

func (b *sqlBatch) MarkDispatched(ctx context.Context, id uuid.UUID, messageID string, at time.Time) error {
	_, err := b.tx.ExecContext(ctx, `
		UPDATE notification_outbox
		SET dispatched_at = $2, message_id = $3, attempts = attempts + 1, last_error = NULL
		WHERE id = $1
	`, id, at, messageID)
	return err
}

func (b *sqlBatch) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	_, err := b.tx.ExecContext(ctx, `
		UPDATE notification_outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`, id, cause.Error())
	return err
}
