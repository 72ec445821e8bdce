package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/pkg/api"
)

// UserStore persists credential records. Logins are unique and
// case-sensitive.
type UserStore interface {
	// FindByLogin returns the user with the given login or ErrNotFound.
	FindByLogin(ctx context.Context, login string) (*api.User, error)

	// Save inserts a new user. Returns ErrConflict if the login or ID is
	// already taken.
	Save(ctx context.Context, u *api.User) (*api.User, error)

	// GetUser returns the user with the given ID or ErrNotFound.
	GetUser(ctx context.Context, id uuid.UUID) (*api.User, error)

	// ListUsers returns all users ordered by login.
	ListUsers(ctx context.Context) ([]*api.User, error)

	// UpdateUser replaces login, hash, and role of an existing user.
	// Returns ErrNotFound or ErrConflict.
	UpdateUser(ctx context.Context, u *api.User) (*api.User, error)

	// DeleteUser removes a user. Returns ErrNotFound if absent.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// ProductStore persists inventory items. Product names are unique and IDs
// are assigned by the store.
type ProductStore interface {
	// CreateProduct inserts p, assigns its ID, and returns the stored copy.
	CreateProduct(ctx context.Context, p *api.Product) (*api.Product, error)

	// GetProduct returns the product with the given ID or ErrNotFound.
	GetProduct(ctx context.Context, id int64) (*api.Product, error)

	// ListProducts returns all products ordered by ID.
	ListProducts(ctx context.Context) ([]*api.Product, error)

	// UpdateProduct replaces the fields of an existing product.
	// Returns ErrNotFound or ErrConflict.
	UpdateProduct(ctx context.Context, p *api.Product) (*api.Product, error)

	// DeleteProduct removes a product. Returns ErrNotFound if absent.
	DeleteProduct(ctx context.Context, id int64) error
}

// Store is the full adapter contract.
type Store interface {
	UserStore
	ProductStore

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases connections and resources.
	Close() error
}
