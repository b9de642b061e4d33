package memstore

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

type Orders struct {
	mu       sync.Mutex
	items    map[bson.ObjectID]*models.Order
	FailNext error // returned once by the next Insert
}

func NewOrders() *Orders {
	return &Orders{items: map[bson.ObjectID]*models.Order{}}
}

func (s *Orders) Insert(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailNext; err != nil {
		s.FailNext = nil
		return err
	}
	if order.ID.IsZero() {
		order.ID = bson.NewObjectID()
	}
	s.items[order.ID] = clone(order)
	return nil
}

func (s *Orders) FindByID(ctx context.Context, id bson.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("order", id.Hex())
	}
	return clone(o), nil
}

func (s *Orders) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Order
	for _, o := range s.items {
		if !filter.UserID.IsZero() && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, *clone(o))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *Orders) UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[order.ID]
	if !ok || current.Status != from {
		return apperr.Conflict("status_changed", "order status was changed by another request")
	}
	current.Status = order.Status
	current.Timeline = order.Timeline
	current.UpdatedAt = order.UpdatedAt
	return nil
}

func (s *Orders) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Transactor runs fn directly; the stores above are already atomic per call.
// Rollback makes it claim transactional rollback without providing it.
type Transactor struct {
	Rollback bool
}

func (Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (t Transactor) Atomic() bool {
	return t.Rollback
}

type Idempotency struct {
	mu    sync.Mutex
	items map[string]string
}

func NewIdempotency() *Idempotency {
	return &Idempotency{items: map[string]string{}}
}

func (s *Idempotency) Reserve(ctx context.Context, scope, key string) (bool, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scope + ":" + key
	v, ok := s.items[k]
	if !ok {
		s.items[k] = ""
		return true, "", false, nil
	}
	if v == "" {
		return false, "", true, nil
	}
	return false, v, false, nil
}

func (s *Idempotency) Complete(ctx context.Context, scope, key, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[scope+":"+key] = result
	return nil
}

func (s *Idempotency) Release(ctx context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, scope+":"+key)
	return nil
}
