// Package fakestore provides an in-memory unit of work for service tests.
package fakestore

import (
	"context"
	"sync"
	"time"

	"github.com/gpustore/backend/internal/dal/interfaces/iorderitemrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iorderrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/ioutboxrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iproductrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iuserrepo"
	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/service/models/orderitem"
	"github.com/gpustore/backend/internal/service/models/outbox"
	"github.com/gpustore/backend/internal/service/models/product"
	"github.com/gpustore/backend/internal/service/models/user"
)

// Store is an in-memory implementation of every repository interface plus
// the unit-of-work surface. One Store instance plays the role of the whole
// database; handing the same instance out of a unit-of-work factory makes
// the state survive across units of work the way a real pool does.
//
// Transactions are not simulated: writes apply immediately and Rollback is
// a no-op. Tests assert on the resulting state and on the Begun/Committed
// counters instead.
type Store struct {
	mu sync.Mutex

	Orders   map[int64]order.Order
	Items    map[int64][]orderitem.OrderItem
	Products map[int64]product.Product
	Users    map[int64]user.User
	Outbox   []outbox.Message

	nextOrderID  int64
	nextItemID   int64
	nextOutboxID int64

	Begun      int
	Committed  int
	RolledBack int

	// Error hooks. When set, the matching method fails with the hook value.
	GetOrderErr      error
	GetWithItemsErr  error
	TransitionErr    error
	TransitionErrFor map[int64]error
	InsertOutboxErr  error
	SaveProductErr   error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		Orders:   make(map[int64]order.Order),
		Items:    make(map[int64][]orderitem.OrderItem),
		Products: make(map[int64]product.Product),
		Users:    make(map[int64]user.User),
	}
}

// AddUser seeds a user and returns its id.
func (s *Store) AddUser(u user.User) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == 0 {
		u.ID = int64(len(s.Users) + 1)
	}
	s.Users[u.ID] = u

	return u.ID
}

// AddProduct seeds a product and returns its id.
func (s *Store) AddProduct(p product.Product) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = int64(len(s.Products) + 1)
	}
	s.Products[p.ID] = p

	return p.ID
}

// AddOrder seeds an order with its items and returns the order id.
func (s *Store) AddOrder(o order.Order, items ...orderitem.OrderItem) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == 0 {
		s.nextOrderID++
		o.ID = s.nextOrderID
	} else if o.ID > s.nextOrderID {
		s.nextOrderID = o.ID
	}

	for i := range items {
		s.nextItemID++
		items[i].ID = s.nextItemID
		items[i].OrderID = o.ID
	}
	s.Orders[o.ID] = o
	s.Items[o.ID] = items

	return o.ID
}

// OutboxRoutingKeys lists the routing keys of all staged messages in order.
func (s *Store) OutboxRoutingKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.Outbox))
	for _, msg := range s.Outbox {
		keys = append(keys, msg.RoutingKey)
	}

	return keys
}

// Unit-of-work surface.

func (s *Store) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Begun++

	return nil
}

func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Committed++

	return nil
}

func (s *Store) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RolledBack++

	return nil
}

func (s *Store) OrderRepository() iorderrepo.IOrderRepository             { return s }
func (s *Store) OrderItemRepository() iorderitemrepo.IOrderItemRepository { return s }
func (s *Store) ProductRepository() iproductrepo.IProductRepository       { return productRepo{s} }
func (s *Store) UserRepository() iuserrepo.IUserRepository                { return userRepo{s} }
func (s *Store) OutboxRepository() ioutboxrepo.IOutboxRepository          { return outboxRepo{s} }

// Adapters working around method name collisions between the repository
// interfaces (Get, Save, Insert, Delete each exist on several of them).

type productRepo struct{ s *Store }

func (r productRepo) Get(ctx context.Context, id int64) (*product.Product, error) {
	return r.s.GetProduct(ctx, id)
}

func (r productRepo) GetForUpdate(ctx context.Context, id int64) (*product.Product, error) {
	return r.s.GetForUpdate(ctx, id)
}

func (r productRepo) Save(ctx context.Context, p product.Product) error {
	return r.s.SaveProduct(ctx, p)
}

type userRepo struct{ s *Store }

func (r userRepo) Get(ctx context.Context, id int64) (*user.User, error) {
	return r.s.GetUser(ctx, id)
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Insert(ctx context.Context, msg outbox.Message) error {
	return r.s.InsertOutbox(ctx, msg)
}

func (r outboxRepo) GetPendingMessages(ctx context.Context, limit int) ([]outbox.Message, error) {
	return r.s.GetPendingMessages(ctx, limit)
}

func (r outboxRepo) UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	return r.s.UpdateRetry(ctx, id, retryCount, lastError, nextRetryAt)
}

func (r outboxRepo) Delete(ctx context.Context, id int64) error {
	return r.s.DeleteOutbox(ctx, id)
}

// Order repository.

func (s *Store) Get(ctx context.Context, id int64) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetOrderErr != nil {
		return nil, s.GetOrderErr
	}

	o, ok := s.Orders[id]
	if !ok {
		return nil, errs.NotFound("order", id)
	}

	return &o, nil
}

func (s *Store) GetWithItems(ctx context.Context, id int64) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetWithItemsErr != nil {
		return nil, s.GetWithItemsErr
	}

	o, ok := s.Orders[id]
	if !ok {
		return nil, errs.NotFound("order", id)
	}
	o.Items = append([]orderitem.OrderItem(nil), s.Items[id]...)

	return &o, nil
}

func (s *Store) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []order.Order
	for id := int64(1); id <= s.nextOrderID; id++ {
		o, ok := s.Orders[id]
		if !ok {
			continue
		}
		if len(filter.Ids) > 0 && !contains(filter.Ids, o.ID) {
			continue
		}
		if len(filter.UserIds) > 0 && !contains(filter.UserIds, o.UserID) {
			continue
		}
		result = append(result, o)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

func (s *Store) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOrderID++
	o.ID = s.nextOrderID
	s.Orders[o.ID] = o

	return o, nil
}

func (s *Store) Save(ctx context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.Orders[o.ID]; !ok {
		return errs.NotFound("order", o.ID)
	}
	s.Orders[o.ID] = o

	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.Orders[id]; !ok {
		return errs.NotFound("order", id)
	}
	delete(s.Orders, id)
	delete(s.Items, id)

	return nil
}

func (s *Store) FindStale(ctx context.Context, status order.Status, before time.Time) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []order.Order
	for id := int64(1); id <= s.nextOrderID; id++ {
		o, ok := s.Orders[id]
		if !ok {
			continue
		}
		if o.Status == status && o.UpdatedAt.Before(before) {
			result = append(result, o)
		}
	}

	return result, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id int64, from, to order.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.TransitionErr != nil {
		return false, s.TransitionErr
	}
	if err, ok := s.TransitionErrFor[id]; ok {
		return false, err
	}

	o, ok := s.Orders[id]
	if !ok || o.Status != from {
		return false, nil
	}

	o.Status = to
	o.UpdatedAt = time.Now()
	s.Orders[id] = o

	return true, nil
}

func (s *Store) TransitionStatusIfStale(ctx context.Context, id int64, from, to order.Status, before time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.TransitionErr != nil {
		return false, s.TransitionErr
	}
	if err, ok := s.TransitionErrFor[id]; ok {
		return false, err
	}

	o, ok := s.Orders[id]
	if !ok || o.Status != from || !o.UpdatedAt.Before(before) {
		return false, nil
	}

	o.Status = to
	o.UpdatedAt = time.Now()
	s.Orders[id] = o

	return true, nil
}

// Order item repository.

func (s *Store) BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := make([]orderitem.OrderItem, 0, len(items))
	for _, item := range items {
		s.nextItemID++
		item.ID = s.nextItemID
		s.Items[item.OrderID] = append(s.Items[item.OrderID], item)
		inserted = append(inserted, item)
	}

	return inserted, nil
}

func (s *Store) QueryByOrderIds(ctx context.Context, orderIds []int64) ([]orderitem.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []orderitem.OrderItem
	for _, id := range orderIds {
		result = append(result, s.Items[id]...)
	}

	return result, nil
}

func (s *Store) DeleteByOrderId(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.Items, orderID)

	return nil
}

// Product repository.

func (s *Store) GetProduct(ctx context.Context, id int64) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.Products[id]
	if !ok {
		return nil, errs.NotFound("product", id)
	}

	return &p, nil
}

func (s *Store) GetForUpdate(ctx context.Context, id int64) (*product.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *Store) SaveProduct(ctx context.Context, p product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveProductErr != nil {
		return s.SaveProductErr
	}
	if _, ok := s.Products[p.ID]; !ok {
		return errs.NotFound("product", p.ID)
	}
	s.Products[p.ID] = p

	return nil
}

// User repository.

func (s *Store) GetUser(ctx context.Context, id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.Users[id]
	if !ok {
		return nil, errs.NotFound("user", id)
	}

	return &u, nil
}

// Outbox repository.

func (s *Store) InsertOutbox(ctx context.Context, msg outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InsertOutboxErr != nil {
		return s.InsertOutboxErr
	}

	s.nextOutboxID++
	msg.ID = s.nextOutboxID
	s.Outbox = append(s.Outbox, msg)

	return nil
}

func (s *Store) GetPendingMessages(ctx context.Context, limit int) ([]outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var result []outbox.Message
	for _, msg := range s.Outbox {
		if len(result) == limit {
			break
		}
		if !msg.NextRetryAt.After(now) && msg.RetryCount < msg.MaxRetries {
			result = append(result, msg)
		}
	}

	return result, nil
}

func (s *Store) UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Outbox {
		if s.Outbox[i].ID == id {
			s.Outbox[i].RetryCount = retryCount
			s.Outbox[i].LastError = lastError
			s.Outbox[i].NextRetryAt = nextRetryAt
			s.Outbox[i].UpdatedAt = time.Now()

			return nil
		}
	}

	return errs.NotFound("outbox message", id)
}

func (s *Store) DeleteOutbox(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Outbox {
		if s.Outbox[i].ID == id {
			s.Outbox = append(s.Outbox[:i], s.Outbox[i+1:]...)

			return nil
		}
	}

	return errs.NotFound("outbox message", id)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}
