package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type fakeReader struct {
	users    map[string]domain.User
	products map[uuid.UUID]domain.Product
	groups   map[uuid.UUID]domain.Group
	stores   []domain.Store
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		users:    map[string]domain.User{},
		products: map[uuid.UUID]domain.Product{},
		groups:   map[uuid.UUID]domain.Group{},
	}
}

func (f *fakeReader) UserByEmail(_ context.Context, email string) (domain.User, error) {
	u, ok := f.users[email]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
	}
	return u, nil
}

func (f *fakeReader) ProductByID(_ context.Context, id uuid.UUID) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return p, nil
}

func (f *fakeReader) GroupByID(_ context.Context, id uuid.UUID) (domain.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return domain.Group{}, fmt.Errorf("%w: group %s", domain.ErrNotFound, id)
	}
	return g, nil
}

func (f *fakeReader) Stores(_ context.Context, isStore bool) ([]domain.Store, error) {
	var out []domain.Store
	for _, s := range f.stores {
		if s.IsStore == isStore {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestService_DiscountPrice(t *testing.T) {
	repo := newFakeReader()
	group := domain.Group{ID: uuid.New(), Name: "vip", DiscountPercent: decimal.RequireFromString("0.10")}
	repo.groups[group.ID] = group
	product := domain.Product{ID: uuid.New(), Name: "mug", BasePrice: decimal.NewFromInt(100)}
	repo.products[product.ID] = product

	vip := domain.User{ID: uuid.New(), Email: "vip@example.com", GroupID: &group.ID}
	plain := domain.User{ID: uuid.New(), Email: "plain@example.com"}
	admin := domain.User{ID: uuid.New(), Email: "admin@example.com", IsAdmin: true}
	repo.users[vip.Email] = vip
	repo.users[plain.Email] = plain

	svc := NewService(repo)
	ctx := context.Background()

	t.Run("customer in a group gets the discount", func(t *testing.T) {
		price, err := svc.DiscountPrice(ctx, vip, "", product.ID)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(90)), price.String())
	})

	t.Run("customer without a group pays base price", func(t *testing.T) {
		price, err := svc.DiscountPrice(ctx, plain, "", product.ID)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(100)), price.String())
	})

	t.Run("admin quotes on behalf of a customer", func(t *testing.T) {
		price, err := svc.DiscountPrice(ctx, admin, vip.Email, product.ID)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(90)), price.String())
	})

	t.Run("non-admin cannot quote for somebody else", func(t *testing.T) {
		price, err := svc.DiscountPrice(ctx, plain, vip.Email, product.ID)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(100)), price.String())
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := svc.DiscountPrice(ctx, admin, "ghost@example.com", product.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.DiscountPrice(ctx, vip, "", uuid.New())
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("out of range discount is rejected", func(t *testing.T) {
		broken := domain.Group{ID: uuid.New(), DiscountPercent: decimal.RequireFromString("1.5")}
		repo.groups[broken.ID] = broken
		u := domain.User{ID: uuid.New(), Email: "odd@example.com", GroupID: &broken.ID}

		_, err := svc.DiscountPrice(ctx, u, "", product.ID)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestService_Locations(t *testing.T) {
	repo := newFakeReader()
	repo.stores = []domain.Store{
		{ID: uuid.New(), Name: "Downtown", Address: "1 Main St", IsStore: true},
		{ID: uuid.New(), Name: "Warehouse", Address: "99 Dock Rd", IsStore: false},
	}
	svc := NewService(repo)

	pickup, err := svc.Locations(context.Background(), domain.ShippingMethodPickup)
	require.NoError(t, err)
	require.Len(t, pickup, 1)
	assert.Equal(t, "1 Main St", pickup[0].Address)

	freeship, err := svc.Locations(context.Background(), domain.ShippingMethodFreeship)
	require.NoError(t, err)
	require.Len(t, freeship, 1)
	assert.Equal(t, "99 Dock Rd", freeship[0].Address)
}
