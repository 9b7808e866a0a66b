package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository for local development and tests.
// IDs come from a counter and are never reused.
type MemoryRepository struct {
	mu     sync.RWMutex
	items  map[int64]Order
	lastID int64
	now    func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[int64]Order),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Save inserts or fully replaces an order.
func (r *MemoryRepository) Save(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if o.ID == 0 {
		r.lastID++
		o.ID = r.lastID
		o.CreatedAt = now
	} else {
		current, ok := r.items[o.ID]
		if !ok {
			return Order{}, ErrOrderNotFound
		}
		o.CreatedAt = current.CreatedAt
	}
	o.UpdatedAt = now
	r.items[o.ID] = o
	return o, nil
}

// FindByID returns the order or ErrOrderNotFound.
func (r *MemoryRepository) FindByID(_ context.Context, id int64) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.items[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

// FindAll returns every order ordered by ID.
func (r *MemoryRepository) FindAll(_ context.Context) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Order, 0, len(r.items))
	for _, o := range r.items {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ExistsByID reports whether an order with id is stored.
func (r *MemoryRepository) ExistsByID(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[id]
	return ok, nil
}

// DeleteByID removes the order with id; deleting a missing id is a no-op.
func (r *MemoryRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}
