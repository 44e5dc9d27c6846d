package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gpustore/backend/internal/dal/postgres"
	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/product"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductDal represents the product data access layer model.
type ProductDal struct {
	Id          int64           `db:"id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Stock       int             `db:"stock"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// ToModel converts ProductDal to the service layer Product model.
func (p *ProductDal) ToModel() *product.Product {
	return &product.Product{
		ID:          p.Id,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// PostgresProductRepository represents a Postgres product repository.
type PostgresProductRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewPostgresProductRepository creates a new Postgres product repository.
func NewPostgresProductRepository(conn postgres.Conn) *PostgresProductRepository {
	return &PostgresProductRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PostgresProductRepository) get(ctx context.Context, id int64, forUpdate bool) (*product.Product, error) {
	builder := r.sb.
		Select("id", "name", "description", "price", "stock", "created_at", "updated_at").
		From("products").
		Where(sq.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	dal := ProductDal{}
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&dal.Id,
		&dal.Name,
		&dal.Description,
		&dal.Price,
		&dal.Stock,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("product", id)
		}

		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return dal.ToModel(), nil
}

// Get retrieves a product without locking.
func (r *PostgresProductRepository) Get(ctx context.Context, id int64) (*product.Product, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves a product holding an exclusive row lock until the
// surrounding transaction ends. Stock decrements go through this path so
// concurrent completions on the same product serialize.
func (r *PostgresProductRepository) GetForUpdate(ctx context.Context, id int64) (*product.Product, error) {
	return r.get(ctx, id, true)
}

// Save updates a product's mutable columns.
func (r *PostgresProductRepository) Save(ctx context.Context, p product.Product) error {
	query, args, err := r.sb.
		Update("products").
		Set("name", p.Name).
		Set("description", p.Description).
		Set("price", p.Price).
		Set("stock", p.Stock).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("product", p.ID)
	}

	return nil
}
