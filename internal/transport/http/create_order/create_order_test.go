package createorder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/service/services/ordersvc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	created *order.Order
	err     error

	gotUserID int64
	gotItems  []ordersvc.ItemInput
}

func (s *fakeService) Create(ctx context.Context, userID int64, items []ordersvc.ItemInput) (*order.Order, error) {
	s.gotUserID = userID
	s.gotItems = items

	return s.created, s.err
}

func TestCreateOrder(t *testing.T) {
	svc := &fakeService{created: &order.Order{
		ID: 1, UserID: 7, Status: order.StatusPending, Total: decimal.NewFromInt(200),
	}}

	body := `{"userId": 7, "items": [{"productId": 3, "quantity": 2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	CreateOrder(rec, req, svc)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(7), svc.gotUserID)
	require.Len(t, svc.gotItems, 1)
	assert.Equal(t, int64(3), svc.gotItems[0].ProductID)
	assert.Equal(t, 2, svc.gotItems[0].Quantity)

	var resp order.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, order.StatusPending, resp.Status)
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	svc := &fakeService{}

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{"))
	rec := httptest.NewRecorder()

	CreateOrder(rec, req, svc)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.gotUserID, "service must not be called for a malformed body")
}

func TestCreateOrder_ValidationFailures(t *testing.T) {
	cases := map[string]string{
		"missing user":  `{"items": [{"productId": 3, "quantity": 2}]}`,
		"empty items":   `{"userId": 7, "items": []}`,
		"zero quantity": `{"userId": 7, "items": [{"productId": 3, "quantity": 0}]}`,
		"zero product":  `{"userId": 7, "items": [{"productId": 0, "quantity": 1}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &fakeService{}

			req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
			rec := httptest.NewRecorder()

			CreateOrder(rec, req, svc)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateOrder_UnknownUser(t *testing.T) {
	svc := &fakeService{err: errs.NotFound("user", 7)}

	body := `{"userId": 7, "items": [{"productId": 3, "quantity": 2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	CreateOrder(rec, req, svc)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
