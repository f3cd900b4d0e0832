package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID      uuid.UUID  `json:"id"`
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	GroupID *uuid.UUID `json:"group_id,omitempty"`
	IsAdmin bool       `json:"is_admin"`
}

type Product struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	BasePrice decimal.Decimal `json:"base_price"`
}

type Group struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Store is a physical location. Retail stores serve pickup orders; the rest
// are warehouses that freeship orders leave from.
type Store struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
	IsStore bool      `json:"is_store"`
}
