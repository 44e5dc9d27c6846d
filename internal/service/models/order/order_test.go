package order

import (
	"testing"

	"github.com/gpustore/backend/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	items := []orderitem.OrderItem{
		{Quantity: 2, Price: decimal.NewFromFloat(100.50)},
		{Quantity: 1, Price: decimal.NewFromInt(25)},
	}

	total := ComputeTotal(items)
	assert.True(t, total.Equal(decimal.NewFromFloat(226.0)), "got %s", total)
}

func TestComputeTotal_Empty(t *testing.T) {
	assert.True(t, ComputeTotal(nil).IsZero())
}
