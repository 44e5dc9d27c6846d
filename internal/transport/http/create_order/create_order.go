package createorder

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/service/services/ordersvc"
	"github.com/gpustore/backend/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	Create(ctx context.Context, userID int64, items []ordersvc.ItemInput) (*order.Order, error)
}

// itemInCreateOrderRequest represents an item in a create order request.
type itemInCreateOrderRequest struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity"  validate:"gte=1"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	UserID int64                      `json:"userId" validate:"gt=0"`
	Items  []itemInCreateOrderRequest `json:"items"  validate:"required,min=1,dive"`
}

var validate = validator.New()

// CreateOrder handles POST /api/orders.
func CreateOrder(w http.ResponseWriter, r *http.Request, svc service) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.WriteStatus(w, http.StatusBadRequest, "invalid request body")

		return
	}

	if err := validate.Struct(req); err != nil {
		httperr.WriteStatus(w, http.StatusBadRequest, err.Error())

		return
	}

	items := make([]ordersvc.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ordersvc.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	created, err := svc.Create(r.Context(), req.UserID, items)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(created)
}
