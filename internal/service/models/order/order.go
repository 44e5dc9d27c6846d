package order

import (
	"time"

	"github.com/gpustore/backend/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// Order represents a customer order.
// Status is mutated only through TransitionTo; items are immutable once
// attached, with unit prices captured at order-creation time.
type Order struct {
	ID        int64                 `json:"id"`
	UserID    int64                 `json:"userId"`
	Total     decimal.Decimal       `json:"total"`
	Status    Status                `json:"status"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Items     []orderitem.OrderItem `json:"items"`
}

// ComputeTotal sums unit price times quantity over all items.
func ComputeTotal(items []orderitem.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return total
}
