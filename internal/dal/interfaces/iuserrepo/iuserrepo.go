package iuserrepo

import (
	"context"

	"github.com/gpustore/backend/internal/service/models/user"
)

// IUserRepository exposes the user lookups intake needs.
type IUserRepository interface {
	Get(ctx context.Context, id int64) (*user.User, error)
}
