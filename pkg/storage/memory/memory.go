// Package memory provides an in-memory implementation of storage.Store
// for testing and lightweight deployments. Records are lost when the
// process restarts.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/storage"
)

// Store is an in-memory storage.Store. All methods are safe for
// concurrent use. Stored records are copied on the way in and on the way
// out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	users   map[uuid.UUID]*api.User
	byLogin map[string]uuid.UUID

	products      map[int64]*api.Product
	productByName map[string]int64
	nextProductID int64
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new empty in-memory store.
func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*api.User),
		byLogin:       make(map[string]uuid.UUID),
		products:      make(map[int64]*api.Product),
		productByName: make(map[string]int64),
		nextProductID: 1,
	}
}

// FindByLogin returns the user with the given login.
func (s *Store) FindByLogin(_ context.Context, login string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byLogin[login]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(s.users[id]), nil
}

// Save inserts a new user.
func (s *Store) Save(_ context.Context, u *api.User) (*api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byLogin[u.Login]; exists {
		return nil, storage.ErrConflict
	}
	if _, exists := s.users[u.ID]; exists {
		return nil, storage.ErrConflict
	}

	stored := copyUser(u)
	s.users[stored.ID] = stored
	s.byLogin[stored.Login] = stored.ID
	return copyUser(stored), nil
}

// GetUser returns the user with the given ID.
func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(u), nil
}

// ListUsers returns all users ordered by login.
func (s *Store) ListUsers(_ context.Context) ([]*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*api.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}

// UpdateUser replaces an existing user's login, hash, and role.
func (s *Store) UpdateUser(_ context.Context, u *api.User) (*api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if owner, taken := s.byLogin[u.Login]; taken && owner != u.ID {
		return nil, storage.ErrConflict
	}

	delete(s.byLogin, existing.Login)
	stored := copyUser(u)
	s.users[stored.ID] = stored
	s.byLogin[stored.Login] = stored.ID
	return copyUser(stored), nil
}

// DeleteUser removes a user.
func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.byLogin, u.Login)
	delete(s.users, id)
	return nil
}

// CreateProduct inserts a product and assigns the next ID.
func (s *Store) CreateProduct(_ context.Context, p *api.Product) (*api.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.productByName[p.Name]; taken {
		return nil, storage.ErrConflict
	}

	stored := *p
	stored.ID = s.nextProductID
	s.nextProductID++
	s.products[stored.ID] = &stored
	s.productByName[stored.Name] = stored.ID

	out := stored
	return &out, nil
}

// GetProduct returns the product with the given ID.
func (s *Store) GetProduct(_ context.Context, id int64) (*api.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *p
	return &out, nil
}

// ListProducts returns all products ordered by ID.
func (s *Store) ListProducts(_ context.Context) ([]*api.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]*api.Product, 0, len(ids))
	for _, id := range ids {
		p := *s.products[id]
		out = append(out, &p)
	}
	return out, nil
}

// UpdateProduct replaces the fields of an existing product.
func (s *Store) UpdateProduct(_ context.Context, p *api.Product) (*api.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if owner, taken := s.productByName[p.Name]; taken && owner != p.ID {
		return nil, storage.ErrConflict
	}

	delete(s.productByName, existing.Name)
	stored := *p
	s.products[stored.ID] = &stored
	s.productByName[stored.Name] = stored.ID

	out := stored
	return &out, nil
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.productByName, p.Name)
	delete(s.products, id)
	return nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func copyUser(u *api.User) *api.User {
	c := *u
	c.PasswordHash = slices.Clone(u.PasswordHash)
	return &c
}
