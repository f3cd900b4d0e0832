package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ShippingMethod string

const (
	ShippingMethodPickup   ShippingMethod = "pickup"
	ShippingMethodFreeship ShippingMethod = "freeship"
)

func ParseShippingMethod(s string) (ShippingMethod, error) {
	switch m := ShippingMethod(s); m {
	case ShippingMethodPickup, ShippingMethodFreeship:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown shipping method %q", ErrInvalidArgument, s)
}

func (m *ShippingMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: shipping method must be a string", ErrInvalidArgument)
	}
	parsed, err := ParseShippingMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m *ShippingMethod) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseShippingMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

type FulfillStatus string

const (
	FulfillStatusUnfulfilled FulfillStatus = "unfulfilled"
	FulfillStatusFulfilled   FulfillStatus = "fulfilled"
)

func ParseFulfillStatus(s string) (FulfillStatus, error) {
	switch st := FulfillStatus(s); st {
	case FulfillStatusUnfulfilled, FulfillStatusFulfilled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown fulfill status %q", ErrInvalidArgument, s)
}

func (s *FulfillStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: fulfill status must be a string", ErrInvalidArgument)
	}
	parsed, err := ParseFulfillStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *FulfillStatus) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseFulfillStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("cannot scan %T into enum", src)
}

type LineItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	Items            []LineItem      `json:"items"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	ShippingMethod   ShippingMethod  `json:"shipping_method"`
	ShippingLocation string          `json:"shipping_location"`
	FulfillStatus    FulfillStatus   `json:"fulfill_status"`
	FulfillAt        *time.Time      `json:"fulfill_at"`
	FromAdmin        bool            `json:"from_admin"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (o *Order) Fulfilled() bool {
	return o.FulfillStatus == FulfillStatusFulfilled
}

type NewOrderParams struct {
	UserID           uuid.UUID
	Items            []LineItem
	TotalPrice       decimal.Decimal
	ShippingMethod   ShippingMethod
	ShippingLocation string
	FromAdmin        bool
	CreatedAt        time.Time
}

// NewOrder builds an unfulfilled order. Line items must reference distinct
// products with positive quantities.
func NewOrder(p NewOrderParams) (*Order, error) {
	if p.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: order owner is required", ErrInvalidArgument)
	}
	if len(p.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one line item", ErrInvalidArgument)
	}

	seen := make(map[uuid.UUID]struct{}, len(p.Items))
	for _, item := range p.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product %s must be positive", ErrInvalidArgument, item.ProductID)
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("%w: product %s appears more than once", ErrInvalidArgument, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	if _, err := ParseShippingMethod(string(p.ShippingMethod)); err != nil {
		return nil, err
	}
	if p.ShippingLocation == "" {
		return nil, fmt.Errorf("%w: shipping location is required", ErrInvalidArgument)
	}
	if p.TotalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: total price must not be negative", ErrInvalidArgument)
	}
	if !p.TotalPrice.Equal(p.TotalPrice.Round(2)) {
		return nil, fmt.Errorf("%w: total price must have at most two decimal places", ErrInvalidArgument)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Order{
		ID:               uuid.New(),
		UserID:           p.UserID,
		Items:            append([]LineItem(nil), p.Items...),
		TotalPrice:       p.TotalPrice,
		ShippingMethod:   p.ShippingMethod,
		ShippingLocation: p.ShippingLocation,
		FulfillStatus:    FulfillStatusUnfulfilled,
		FromAdmin:        p.FromAdmin,
		CreatedAt:        createdAt,
	}, nil
}

// OrderSummary is the list view of an order.
type OrderSummary struct {
	ID             uuid.UUID       `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	ShippingMethod ShippingMethod  `json:"shipping_method"`
	FulfillStatus  FulfillStatus   `json:"fulfill_status"`
	OwnerEmail     string          `json:"email"`
	TotalQuantity  int             `json:"total_quantity"`
}

type OrderWithOwner struct {
	Order
	Owner User `json:"owner"`
}
