package orderitem

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem represents a line within an order. Price is the product's unit
// price captured at order-creation time, independent of the product's
// current price.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
