package orders

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type fixture struct {
	svc      *Service
	store    *memStore
	catalog  *fakeCatalog
	customer domain.User
	admin    domain.User
	product  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	customer := domain.User{ID: uuid.New(), Name: "Carol", Email: "carol@example.com"}
	admin := domain.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", IsAdmin: true}
	product := uuid.New()

	catalog := &fakeCatalog{
		users:    map[string]domain.User{customer.Email: customer, admin.Email: admin},
		products: map[uuid.UUID]struct{}{product: {}},
	}
	store := newMemStore()
	store.emails[customer.ID] = customer.Email
	store.emails[admin.ID] = admin.Email

	svc, err := NewService(store, catalog, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, catalog: catalog, customer: customer, admin: admin, product: product}
}

func (f *fixture) input(items ...domain.LineItem) CreateOrderInput {
	if len(items) == 0 {
		items = []domain.LineItem{{ProductID: f.product, Quantity: 3}}
	}
	return CreateOrderInput{
		Items:            items,
		ShippingMethod:   domain.ShippingMethodFreeship,
		ShippingLocation: "4 Pine Rd, Austin",
		TotalPrice:       decimal.NewFromInt(270),
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("customer places own order", func(t *testing.T) {
		f := newFixture(t)

		order, err := f.svc.Create(ctx, f.customer, f.input())
		require.NoError(t, err)

		assert.Equal(t, f.customer.ID, order.UserID)
		assert.False(t, order.FromAdmin)
		assert.Equal(t, domain.FulfillStatusUnfulfilled, order.FulfillStatus)
		assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(270)))
		assert.Equal(t, 1, f.store.count())
	})

	t.Run("admin places order on behalf of a customer", func(t *testing.T) {
		f := newFixture(t)
		in := f.input()
		in.CustomerEmail = f.customer.Email

		order, err := f.svc.Create(ctx, f.admin, in)
		require.NoError(t, err)

		assert.Equal(t, f.customer.ID, order.UserID)
		assert.True(t, order.FromAdmin)
	})

	t.Run("admin naming themselves is not a from-admin order", func(t *testing.T) {
		f := newFixture(t)
		in := f.input()
		in.CustomerEmail = f.admin.Email

		order, err := f.svc.Create(ctx, f.admin, in)
		require.NoError(t, err)

		assert.Equal(t, f.admin.ID, order.UserID)
		assert.False(t, order.FromAdmin)
	})

	t.Run("customer email override is ignored for non-admins", func(t *testing.T) {
		f := newFixture(t)
		in := f.input()
		in.CustomerEmail = "someone-else@example.com"

		order, err := f.svc.Create(ctx, f.customer, in)
		require.NoError(t, err)

		assert.Equal(t, f.customer.ID, order.UserID)
		assert.False(t, order.FromAdmin)
	})

	t.Run("unknown customer email", func(t *testing.T) {
		f := newFixture(t)
		in := f.input()
		in.CustomerEmail = "ghost@example.com"

		_, err := f.svc.Create(ctx, f.admin, in)
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Zero(t, f.store.count())
	})

	t.Run("missing product aborts before any write", func(t *testing.T) {
		f := newFixture(t)
		missing := uuid.New()

		_, err := f.svc.Create(ctx, f.customer, f.input(
			domain.LineItem{ProductID: f.product, Quantity: 1},
			domain.LineItem{ProductID: missing, Quantity: 1},
		))
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), missing.String())
		assert.Zero(t, f.store.count())
	})

	t.Run("first missing product is reported", func(t *testing.T) {
		f := newFixture(t)
		first, second := uuid.New(), uuid.New()

		_, err := f.svc.Create(ctx, f.customer, f.input(
			domain.LineItem{ProductID: first, Quantity: 1},
			domain.LineItem{ProductID: second, Quantity: 1},
		))
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Contains(t, err.Error(), first.String())
		assert.NotContains(t, err.Error(), second.String())
	})

	t.Run("invalid order shape", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Create(ctx, f.customer, f.input(domain.LineItem{ProductID: f.product, Quantity: 0}))
		require.ErrorIs(t, err, domain.ErrInvalidArgument)

		in := f.input()
		in.Items = nil
		_, err = f.svc.Create(ctx, f.customer, in)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Zero(t, f.store.count())
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	own, err := f.svc.Create(ctx, f.customer, f.input())
	require.NoError(t, err)

	in := f.input()
	in.CustomerEmail = f.customer.Email
	onBehalf, err := f.svc.Create(ctx, f.admin, in)
	require.NoError(t, err)

	customerView, err := f.svc.List(ctx, f.customer)
	require.NoError(t, err)
	assert.Len(t, customerView, 2)

	adminView, err := f.svc.List(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, adminView, 1)
	assert.Equal(t, onBehalf.ID, adminView[0].ID)
	assert.Equal(t, f.customer.Email, adminView[0].OwnerEmail)
	assert.Equal(t, 3, adminView[0].TotalQuantity)
	assert.NotEqual(t, own.ID, adminView[0].ID)
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.svc.Create(ctx, f.customer, f.input())
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.Get(ctx, f.admin, order.ID)
	require.NoError(t, err)

	stranger := domain.User{ID: uuid.New(), Email: "eve@example.com"}
	_, err = f.svc.Get(ctx, stranger, order.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(ctx, f.customer, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.svc.Create(ctx, f.customer, f.input())
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, f.customer, order.ID), domain.ErrForbidden)
	assert.Equal(t, 1, f.store.count())

	require.NoError(t, f.svc.Delete(ctx, f.admin, order.ID))
	assert.Zero(t, f.store.count())

	require.ErrorIs(t, f.svc.Delete(ctx, f.admin, order.ID), domain.ErrNotFound)
}

func TestService_CustomerEmails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CustomerEmails(ctx, f.customer)
	require.ErrorIs(t, err, domain.ErrForbidden)

	emails, err := f.svc.CustomerEmails(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, []string{f.customer.Email}, emails)
}
