package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/pkg/api"
)

// AuthService handles the public credential endpoints.
type AuthService interface {
	// SignIn verifies credentials and issues a token. Every credential
	// failure is reported as the same bad_credentials error.
	SignIn(ctx context.Context, req *api.SignInRequest) (*api.SignInResponse, error)

	// SignUp registers a new user.
	SignUp(ctx context.Context, req *api.SignUpRequest) (*api.SignUpResponse, error)
}

// ProductService handles inventory CRUD.
type ProductService interface {
	Create(ctx context.Context, req *api.ProductRequest) (*api.Product, error)
	Get(ctx context.Context, id int64) (*api.Product, error)
	List(ctx context.Context) ([]*api.Product, error)
	Update(ctx context.Context, id int64, req *api.ProductRequest) (*api.Product, error)
	Delete(ctx context.Context, id int64) error
}

// UserService handles administrative user management.
type UserService interface {
	Create(ctx context.Context, req *api.SignUpRequest) (*api.User, error)
	Get(ctx context.Context, id uuid.UUID) (*api.User, error)
	List(ctx context.Context) ([]*api.User, error)
	Update(ctx context.Context, id uuid.UUID, req *api.UpdateUserRequest) (*api.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
