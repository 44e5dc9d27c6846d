package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/gpustore/backend/internal/dal/postgres"
	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/user"
	"github.com/jackc/pgx/v5"
)

// PostgresUserRepository represents a Postgres user repository.
type PostgresUserRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewPostgresUserRepository creates a new Postgres user repository.
func NewPostgresUserRepository(conn postgres.Conn) *PostgresUserRepository {
	return &PostgresUserRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Get retrieves a user by id.
func (r *PostgresUserRepository) Get(ctx context.Context, id int64) (*user.User, error) {
	query, args, err := r.sb.
		Select("id", "username", "email", "created_at").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	u := user.User{}
	err = r.conn.QueryRow(ctx, query, args...).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("user", id)
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}
