package fulfillment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/outbox"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetWithOwner(ctx context.Context, id uuid.UUID) (*domain.OrderWithOwner, error) {
	var (
		o       domain.OrderWithOwner
		groupID uuid.NullUUID
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT o.id, o.user_id, o.total_price, o.shipping_method, o.shipping_location,
			o.fulfill_status, o.fulfill_at, o.from_admin, o.created_at,
			u.id, u.name, u.email, u.group_id, u.is_admin
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.id = $1
	`, id).Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.ShippingMethod, &o.ShippingLocation,
		&o.FulfillStatus, &o.FulfillAt, &o.FromAdmin, &o.CreatedAt,
		&o.Owner.ID, &o.Owner.Name, &o.Owner.Email, &groupID, &o.Owner.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		o.Owner.GroupID = &groupID.UUID
	}
	return &o, nil
}

func (r *Repository) Claim(ctx context.Context, id, token uuid.UUID, now, expiresAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET fulfill_claim = $2, fulfill_claim_expires_at = $3
		WHERE id = $1
			AND fulfill_status = 'unfulfilled'
			AND (fulfill_claim IS NULL OR fulfill_claim_expires_at < $4)
	`, id, token, expiresAt, now)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: order %s is already fulfilled or being fulfilled", domain.ErrConflict, id)
	}

	return nil
}

func (r *Repository) Release(ctx context.Context, id, token uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET fulfill_claim = NULL, fulfill_claim_expires_at = NULL
		WHERE id = $1 AND fulfill_claim = $2
	`, id, token)
	return err
}

func (r *Repository) Complete(ctx context.Context, id, token uuid.UUID, fulfilledAt time.Time, n domain.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET fulfill_status = 'fulfilled', fulfill_at = $3,
			fulfill_claim = NULL, fulfill_claim_expires_at = NULL
		WHERE id = $1 AND fulfill_claim = $2 AND fulfill_status = 'unfulfilled'
	`, id, token, fulfilledAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: fulfillment claim on order %s was lost", domain.ErrConflict, id)
	}

	if err := outbox.Enqueue(ctx, tx, n); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	return tx.Commit()
}
