package updateorderstatus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	updated *order.Order
	err     error

	gotID     int64
	gotTarget order.Status
}

func (s *fakeService) UpdateStatus(ctx context.Context, id int64, target order.Status) (*order.Order, error) {
	s.gotID = id
	s.gotTarget = target

	return s.updated, s.err
}

func newRequest(id, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/"+id+"/status", strings.NewReader(body))

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := &fakeService{updated: &order.Order{ID: 5, Status: order.StatusProcessing}}

	rec := httptest.NewRecorder()
	UpdateOrderStatus(rec, newRequest("5", `{"status": "PROCESSING"}`), svc)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), svc.gotID)
	assert.Equal(t, order.StatusProcessing, svc.gotTarget)
}

func TestUpdateOrderStatus_BadID(t *testing.T) {
	svc := &fakeService{}

	rec := httptest.NewRecorder()
	UpdateOrderStatus(rec, newRequest("abc", `{"status": "PROCESSING"}`), svc)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.gotID)
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	svc := &fakeService{}

	rec := httptest.NewRecorder()
	UpdateOrderStatus(rec, newRequest("5", `{"status": "SHIPPED"}`), svc)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.gotID, "service must not see an unparseable status")
}

func TestUpdateOrderStatus_MissingStatus(t *testing.T) {
	svc := &fakeService{}

	rec := httptest.NewRecorder()
	UpdateOrderStatus(rec, newRequest("5", `{}`), svc)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	svc := &fakeService{err: errs.InvalidTransition("COMPLETED", "PROCESSING")}

	rec := httptest.NewRecorder()
	UpdateOrderStatus(rec, newRequest("5", `{"status": "PROCESSING"}`), svc)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	svc := &fakeService{err: errs.NotFound("order", 5)}

	rec := httptest.NewRecorder()
	UpdateOrderStatus(rec, newRequest("5", `{"status": "PROCESSING"}`), svc)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
