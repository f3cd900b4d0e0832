package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

type Reader interface {
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	ProductByID(ctx context.Context, id uuid.UUID) (domain.Product, error)
	GroupByID(ctx context.Context, id uuid.UUID) (domain.Group, error)
	Stores(ctx context.Context, isStore bool) ([]domain.Store, error)
}

type Service struct {
	repo Reader
}

func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

// DiscountPrice quotes a product's unit price for a customer. Admins may quote
// on behalf of another customer by email; everybody else is quoted for
// themselves. Customers without a group pay the base price.
func (s *Service) DiscountPrice(ctx context.Context, actor domain.User, customerEmail string, productID uuid.UUID) (decimal.Decimal, error) {
	customer := actor
	if actor.IsAdmin && customerEmail != "" && customerEmail != actor.Email {
		var err error
		customer, err = s.repo.UserByEmail(ctx, customerEmail)
		if err != nil {
			return decimal.Zero, err
		}
	}

	product, err := s.repo.ProductByID(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}

	discount := decimal.Zero
	if customer.GroupID != nil {
		group, err := s.repo.GroupByID(ctx, *customer.GroupID)
		if err != nil {
			return decimal.Zero, err
		}
		discount = group.DiscountPercent
	}

	return pricing.DiscountedUnitPrice(product.BasePrice, discount)
}

func (s *Service) Price(discountPrice decimal.Decimal, quantity int) (decimal.Decimal, error) {
	return pricing.LineTotal(discountPrice, quantity)
}

// Locations lists retail stores for pickup orders and warehouses otherwise.
func (s *Service) Locations(ctx context.Context, method domain.ShippingMethod) ([]domain.Store, error) {
	return s.repo.Stores(ctx, method == domain.ShippingMethodPickup)
}
