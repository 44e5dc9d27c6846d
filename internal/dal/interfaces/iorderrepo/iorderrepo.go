package iorderrepo

import (
	"context"
	"time"

	"github.com/gpustore/backend/internal/service/models/order"
)

// IOrderRepository is the order store contract. Status-conditioned
// transitions are the concurrency control between the fulfillment worker
// and the expiration reaper.
type IOrderRepository interface {
	Get(ctx context.Context, id int64) (*order.Order, error)
	GetWithItems(ctx context.Context, id int64) (*order.Order, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	Save(ctx context.Context, o order.Order) error
	Delete(ctx context.Context, id int64) error
	FindStale(ctx context.Context, status order.Status, before time.Time) ([]order.Order, error)
	// TransitionStatus atomically updates status where the current status
	// still matches from. Returns false when another actor won the race.
	TransitionStatus(ctx context.Context, id int64, from, to order.Status) (bool, error)
	// TransitionStatusIfStale additionally conditions on updated_at < before,
	// so the reaper only expires rows that are still stale at update time.
	TransitionStatusIfStale(ctx context.Context, id int64, from, to order.Status, before time.Time) (bool, error)
}
