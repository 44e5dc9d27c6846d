package iproductrepo

import (
	"context"

	"github.com/gpustore/backend/internal/service/models/product"
)

// IProductRepository is the stock store contract.
type IProductRepository interface {
	Get(ctx context.Context, id int64) (*product.Product, error)
	// GetForUpdate acquires an exclusive row lock on the product. Must be
	// called inside a transaction; the lock is released at commit/rollback.
	GetForUpdate(ctx context.Context, id int64) (*product.Product, error)
	Save(ctx context.Context, p product.Product) error
}
