package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront/internal/domain"
)

const pqForeignKeyViolation = "23503"

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order and all of its line items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total_price, shipping_method, shipping_location,
			fulfill_status, from_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, order.UserID, order.TotalPrice, order.ShippingMethod, order.ShippingLocation,
		order.FulfillStatus, order.FromAdmin, order.CreatedAt)
	if err != nil {
		return mapWriteError(err)
	}

	productIDs := make([]string, len(order.Items))
	quantities := make([]int64, len(order.Items))
	for i, item := range order.Items {
		productIDs[i] = item.ProductID.String()
		quantities[i] = int64(item.Quantity)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_line_items (order_id, product_id, quantity)
		SELECT $1, p, q FROM unnest($2::uuid[], $3::int[]) AS t(p, q)
	`, order.ID, pq.Array(productIDs), pq.Array(quantities))
	if err != nil {
		return mapWriteError(err)
	}

	return tx.Commit()
}

// A product deleted between validation and insert surfaces as a foreign key
// violation.
func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, pqErr.Detail)
	}
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_price, shipping_method, shipping_location,
			fulfill_status, fulfill_at, from_admin, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.UserID, &order.TotalPrice, &order.ShippingMethod, &order.ShippingLocation,
		&order.FulfillStatus, &order.FulfillAt, &order.FromAdmin, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY product_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// List joins each order with its owner's email and the sum of its line item
// quantities.
func (r *OrderRepository) List(ctx context.Context, filter ListFilter) ([]domain.OrderSummary, error) {
	var owner uuid.NullUUID
	if filter.OwnerID != nil {
		owner = uuid.NullUUID{UUID: *filter.OwnerID, Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.created_at, o.total_price, o.shipping_method, o.fulfill_status,
			u.email, COALESCE(SUM(li.quantity), 0)
		FROM orders o
		JOIN users u ON u.id = o.user_id
		LEFT JOIN order_line_items li ON li.order_id = o.id
		WHERE ($1::uuid IS NULL OR o.user_id = $1)
			AND (NOT $2 OR o.from_admin)
		GROUP BY o.id, u.email
		ORDER BY o.created_at DESC
	`, owner, filter.FromAdminOnly)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	summaries := []domain.OrderSummary{}
	for rows.Next() {
		var s domain.OrderSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.TotalPrice, &s.ShippingMethod, &s.FulfillStatus,
			&s.OwnerEmail, &s.TotalQuantity); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// Delete removes the order; its line items go with it through the cascade.
func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}

	return nil
}
