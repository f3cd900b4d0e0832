package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront/internal/auth"
	"github.com/joao-fontenele/storefront/internal/domain"
)

type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.OrderSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Catalog interface {
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	ExistingProductIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
	CustomerEmails(ctx context.Context) ([]string, error)
}

// ListFilter narrows List. A nil OwnerID matches every owner.
type ListFilter struct {
	OwnerID       *uuid.UUID
	FromAdminOnly bool
}

type CreateOrderInput struct {
	CustomerEmail    string
	Items            []domain.LineItem
	ShippingMethod   domain.ShippingMethod
	ShippingLocation string
	TotalPrice       decimal.Decimal
}

type Service struct {
	store   Store
	catalog Catalog
	logger  *slog.Logger
	created metric.Int64Counter
}

func NewService(store Store, catalog Catalog, logger *slog.Logger) (*Service, error) {
	created, err := otel.Meter("orders").Int64Counter("orders.created",
		metric.WithDescription("Orders persisted"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders.created counter: %w", err)
	}
	return &Service{store: store, catalog: catalog, logger: logger, created: created}, nil
}

// Create places an order for the acting user, or for the customer named by
// in.CustomerEmail when the actor is an administrator. Every referenced product
// must exist before anything is written.
func (s *Service) Create(ctx context.Context, actor domain.User, in CreateOrderInput) (*domain.Order, error) {
	customer, err := s.resolveCustomer(ctx, actor, in.CustomerEmail)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewOrder(domain.NewOrderParams{
		UserID:           customer.ID,
		Items:            in.Items,
		TotalPrice:       in.TotalPrice,
		ShippingMethod:   in.ShippingMethod,
		ShippingLocation: in.ShippingLocation,
		FromAdmin:        customer.ID != actor.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.ensureProductsExist(ctx, order.Items); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String("shipping_method", string(order.ShippingMethod)),
		attribute.Bool("from_admin", order.FromAdmin),
	))
	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID, "user_id", order.UserID, "from_admin", order.FromAdmin, "items", len(order.Items))

	return order, nil
}

func (s *Service) resolveCustomer(ctx context.Context, actor domain.User, email string) (domain.User, error) {
	if !actor.IsAdmin || email == "" {
		return actor, nil
	}
	customer, err := s.catalog.UserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	return customer, nil
}

func (s *Service) ensureProductsExist(ctx context.Context, items []domain.LineItem) error {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	found, err := s.catalog.ExistingProductIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("look up products: %w", err)
	}

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
		}
	}
	return nil
}

// List returns a customer's own orders, or for administrators the orders
// placed by an administrator on a customer's behalf.
func (s *Service) List(ctx context.Context, actor domain.User) ([]domain.OrderSummary, error) {
	filter := ListFilter{FromAdminOnly: true}
	if !actor.IsAdmin {
		filter = ListFilter{OwnerID: &actor.ID}
	}
	return s.store.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, actor domain.User, id uuid.UUID) (*domain.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && order.UserID != actor.ID {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	return order, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.User, id uuid.UUID) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "order deleted", "order_id", id, "by", actor.Email)
	return nil
}

func (s *Service) CustomerEmails(ctx context.Context, actor domain.User) ([]string, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.catalog.CustomerEmails(ctx)
}
