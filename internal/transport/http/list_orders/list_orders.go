package listorders

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	ListOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}

// ListOrders handles GET /api/orders with optional userId/page/pageSize
// query parameters.
func ListOrders(w http.ResponseWriter, r *http.Request, svc service) {
	filter := &order.QueryOrdersModel{}

	if v := r.URL.Query().Get("userId"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httperr.WriteStatus(w, http.StatusBadRequest, "invalid userId")

			return
		}
		filter.UserIds = []int64{userID}
	}

	if v := r.URL.Query().Get("pageSize"); v != "" {
		pageSize, err := strconv.Atoi(v)
		if err != nil || pageSize < 1 {
			httperr.WriteStatus(w, http.StatusBadRequest, "invalid pageSize")

			return
		}
		filter.Limit = pageSize

		if p := r.URL.Query().Get("page"); p != "" {
			page, err := strconv.Atoi(p)
			if err != nil || page < 1 {
				httperr.WriteStatus(w, http.StatusBadRequest, "invalid page")

				return
			}
			filter.Offset = (page - 1) * pageSize
		}
	}

	orders, err := svc.ListOrders(r.Context(), filter)
	if err != nil {
		httperr.Write(w, err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(orders)
}
