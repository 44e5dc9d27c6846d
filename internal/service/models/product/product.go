package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry. Stock is mutated by the fulfillment
// worker under an exclusive row lock and never goes negative.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
