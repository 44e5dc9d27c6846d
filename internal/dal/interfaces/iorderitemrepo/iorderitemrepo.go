package iorderitemrepo

import (
	"context"

	"github.com/gpustore/backend/internal/service/models/orderitem"
)

// IOrderItemRepository is the order item store contract. Items are written
// once at intake and never updated afterwards.
type IOrderItemRepository interface {
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)
	QueryByOrderIds(ctx context.Context, orderIds []int64) ([]orderitem.OrderItem, error)
	DeleteByOrderId(ctx context.Context, orderID int64) error
}
