package uow

import (
	"context"
	"errors"

	"github.com/gpustore/backend/internal/dal/interfaces/iorderitemrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iorderrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/ioutboxrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iproductrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iuserrepo"
	"github.com/gpustore/backend/internal/dal/postgres"
	orderrepo "github.com/gpustore/backend/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/gpustore/backend/internal/dal/repositories/orderitem/postgres"
	outboxrepo "github.com/gpustore/backend/internal/dal/repositories/outbox/postgres"
	productrepo "github.com/gpustore/backend/internal/dal/repositories/product/postgres"
	userrepo "github.com/gpustore/backend/internal/dal/repositories/user/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UnitOfWork binds all repositories to one connection scope. Until Begin
// is called the repositories run on the pool; after Begin they share a
// single transaction, so order, item, stock, and outbox writes commit or
// roll back together.
type UnitOfWork struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
	productRepo   iproductrepo.IProductRepository
	userRepo      iuserrepo.IUserRepository
	outboxRepo    ioutboxrepo.IOutboxRepository
}

// NewUnitOfWork creates a unit of work over the given Postgres client.
func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	u := &UnitOfWork{pool: client.Pool()}
	u.bind(client.Pool())

	return u
}

func (u *UnitOfWork) bind(conn postgres.Conn) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewPostgresOrderItemRepository(conn)
	u.productRepo = productrepo.NewPostgresProductRepository(conn)
	u.userRepo = userrepo.NewPostgresUserRepository(conn)
	u.outboxRepo = outboxrepo.NewPostgresOutboxRepository(conn)
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

func (u *UnitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return u.productRepo
}

func (u *UnitOfWork) UserRepository() iuserrepo.IUserRepository {
	return u.userRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

// Begin starts a transaction and rebinds the repositories to it.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

// Commit commits the active transaction.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Commit(ctx)
	u.tx = nil
	u.bind(u.pool)

	return err
}

// Rollback aborts the active transaction. Safe to defer after Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(ctx)
	u.tx = nil
	u.bind(u.pool)

	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}

	return err
}
