package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type memStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
	emails map[uuid.UUID]string
}

func newMemStore() *memStore {
	return &memStore{orders: map[uuid.UUID]*domain.Order{}, emails: map[uuid.UUID]string{}}
}

func (m *memStore) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) List(_ context.Context, filter ListFilter) ([]domain.OrderSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.OrderSummary{}
	for _, o := range m.orders {
		if filter.OwnerID != nil && o.UserID != *filter.OwnerID {
			continue
		}
		if filter.FromAdminOnly && !o.FromAdmin {
			continue
		}
		qty := 0
		for _, item := range o.Items {
			qty += item.Quantity
		}
		out = append(out, domain.OrderSummary{
			ID:             o.ID,
			CreatedAt:      o.CreatedAt,
			TotalPrice:     o.TotalPrice,
			ShippingMethod: o.ShippingMethod,
			FulfillStatus:  o.FulfillStatus,
			OwnerEmail:     m.emails[o.UserID],
			TotalQuantity:  qty,
		})
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	delete(m.orders, id)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type fakeCatalog struct {
	users    map[string]domain.User
	products map[uuid.UUID]struct{}
}

func (f *fakeCatalog) UserByEmail(_ context.Context, email string) (domain.User, error) {
	u, ok := f.users[email]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user with email %s", domain.ErrNotFound, email)
	}
	return u, nil
}

func (f *fakeCatalog) ExistingProductIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	found := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		if _, ok := f.products[id]; ok {
			found[id] = struct{}{}
		}
	}
	return found, nil
}

func (f *fakeCatalog) CustomerEmails(context.Context) ([]string, error) {
	var out []string
	for email, u := range f.users {
		if !u.IsAdmin {
			out = append(out, email)
		}
	}
	return out, nil
}
