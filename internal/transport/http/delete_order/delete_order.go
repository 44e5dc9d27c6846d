package deleteorder

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gpustore/backend/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	Delete(ctx context.Context, id int64) error
}

// DeleteOrder handles DELETE /api/orders/{id}.
func DeleteOrder(w http.ResponseWriter, r *http.Request, svc service) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httperr.WriteStatus(w, http.StatusBadRequest, "invalid order id")

		return
	}

	if err := svc.Delete(r.Context(), id); err != nil {
		httperr.Write(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
