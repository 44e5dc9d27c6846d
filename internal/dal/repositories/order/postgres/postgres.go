package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gpustore/backend/internal/dal/postgres"
	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/service/models/orderitem"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id        int64           `db:"id"`
	UserId    int64           `db:"user_id"`
	Total     decimal.Decimal `db:"total"`
	Status    string          `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:        o.Id,
		UserID:    o.UserId,
		Total:     o.Total,
		Status:    status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Items:     []orderitem.OrderItem{},
	}, nil
}

const orderColumns = "id, user_id, total, status, created_at, updated_at"

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn postgres.Conn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	dal := OrderDal{}
	err := row.Scan(
		&dal.Id,
		&dal.UserId,
		&dal.Total,
		&dal.Status,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return dal.ToModel()
}

// Get retrieves a single order without its items.
func (r *PostgresOrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	query, args, err := r.sb.
		Select("id", "user_id", "total", "status", "created_at", "updated_at").
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("order", id)
		}

		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return o, nil
}

// GetWithItems retrieves an order together with its items.
func (r *PostgresOrderRepository) GetWithItems(ctx context.Context, id int64) (*order.Order, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	query, args, err := r.sb.
		Select("id", "order_id", "product_id", "quantity", "price", "created_at", "updated_at").
		From("order_items").
		Where(sq.Eq{"order_id": id}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item orderitem.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return o, nil
}

// Query retrieves orders based on filter criteria.
func (r *PostgresOrderRepository) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	builder := r.sb.
		Select("id", "user_id", "total", "status", "created_at", "updated_at").
		From("orders").
		OrderBy("id ASC")

	if len(filter.Ids) > 0 {
		builder = builder.Where(sq.Eq{"id": filter.Ids})
	}
	if len(filter.UserIds) > 0 {
		builder = builder.Where(sq.Eq{"user_id": filter.UserIds})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		dal := OrderDal{}
		err := rows.Scan(&dal.Id, &dal.UserId, &dal.Total, &dal.Status, &dal.CreatedAt, &dal.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Insert persists a new order and returns it with the generated id.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	query, args, err := r.sb.
		Insert("orders").
		Columns("user_id", "total", "status", "created_at", "updated_at").
		Values(o.UserID, o.Total, o.Status.String(), o.CreatedAt, o.UpdatedAt).
		Suffix("RETURNING " + orderColumns).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	inserted, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	inserted.Items = o.Items

	return *inserted, nil
}

// Save updates an existing order's mutable columns.
func (r *PostgresOrderRepository) Save(ctx context.Context, o order.Order) error {
	query, args, err := r.sb.
		Update("orders").
		Set("total", o.Total).
		Set("status", o.Status.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": o.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("order", o.ID)
	}

	return nil
}

// Delete removes an order. Items are removed by the ON DELETE CASCADE
// constraint on order_items.
func (r *PostgresOrderRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.sb.
		Delete("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("order", id)
	}

	return nil
}

// FindStale retrieves orders in the given status whose updated_at is older
// than the cutoff.
func (r *PostgresOrderRepository) FindStale(
	ctx context.Context,
	status order.Status,
	before time.Time,
) ([]order.Order, error) {
	query, args, err := r.sb.
		Select("id", "user_id", "total", "status", "created_at", "updated_at").
		From("orders").
		Where(sq.Eq{"status": status.String()}).
		Where(sq.Lt{"updated_at": before}).
		OrderBy("updated_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		dal := OrderDal{}
		err := rows.Scan(&dal.Id, &dal.UserId, &dal.Total, &dal.Status, &dal.CreatedAt, &dal.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// TransitionStatus performs the status change as a single conditional
// update. A zero-row result means another actor already moved the order.
func (r *PostgresOrderRepository) TransitionStatus(
	ctx context.Context,
	id int64,
	from, to order.Status,
) (bool, error) {
	query, args, err := r.sb.
		Update("orders").
		Set("status", to.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": from.String()}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// TransitionStatusIfStale is TransitionStatus additionally conditioned on
// staleness, so the reaper never expires a row freshened since the scan.
func (r *PostgresOrderRepository) TransitionStatusIfStale(
	ctx context.Context,
	id int64,
	from, to order.Status,
	before time.Time,
) (bool, error) {
	query, args, err := r.sb.
		Update("orders").
		Set("status", to.String()).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": from.String()}).
		Where(sq.Lt{"updated_at": before}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
