package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// Repository reads the user, product, group and store tables. Writes to
// those tables belong to the back office and never happen here.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, name, email, group_id, is_admin`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u       domain.User
		groupID uuid.NullUUID
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &groupID, &u.IsAdmin); err != nil {
		return domain.User{}, err
	}
	if groupID.Valid {
		u.GroupID = &groupID.UUID
	}
	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("%w: user with email %s", domain.ErrNotFound, email)
	}
	return u, err
}

func (r *Repository) UserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return u, err
}

// CustomerEmails lists the emails of every non-admin user.
func (r *Repository) CustomerEmails(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email FROM users WHERE NOT is_admin ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// ExistingProductIDs returns the subset of ids that resolve to a product.
func (r *Repository) ExistingProductIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	found := make(map[uuid.UUID]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id FROM products WHERE id = ANY($1::uuid[])`, pq.Array(raw))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	return found, rows.Err()
}

func (r *Repository) ProductByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx, `SELECT id, name, base_price FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.BasePrice)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return p, err
}

func (r *Repository) GroupByID(ctx context.Context, id uuid.UUID) (domain.Group, error) {
	var g domain.Group
	err := r.db.QueryRowContext(ctx, `SELECT id, name, discount_percent FROM groups WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.DiscountPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, fmt.Errorf("%w: group %s", domain.ErrNotFound, id)
	}
	return g, err
}

func (r *Repository) Stores(ctx context.Context, isStore bool) ([]domain.Store, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, is_store
		FROM stores
		WHERE is_store = $1
		ORDER BY name
	`, isStore)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	stores := []domain.Store{}
	for rows.Next() {
		var s domain.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.IsStore); err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}
