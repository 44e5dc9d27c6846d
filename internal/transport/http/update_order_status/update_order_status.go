package updateorderstatus

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	UpdateStatus(ctx context.Context, id int64, target order.Status) (*order.Order, error)
}

// updateOrderStatusRequest represents a status update request.
type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

var validate = validator.New()

// UpdateOrderStatus handles PATCH /api/orders/{id}/status.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, svc service) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httperr.WriteStatus(w, http.StatusBadRequest, "invalid order id")

		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.WriteStatus(w, http.StatusBadRequest, "invalid request body")

		return
	}

	if err := validate.Struct(req); err != nil {
		httperr.WriteStatus(w, http.StatusBadRequest, err.Error())

		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		httperr.WriteStatus(w, http.StatusBadRequest, "invalid order status")

		return
	}

	updated, err := svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(updated)
}
