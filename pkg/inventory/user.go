package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/storage"
)

// Hasher turns a plaintext password into a storable hash.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
}

// UserService manages credential records on behalf of administrators.
type UserService struct {
	store  storage.UserStore
	hasher Hasher
	logger *slog.Logger
}

// NewUserService creates a UserService. A nil logger uses slog.Default().
func NewUserService(store storage.UserStore, hasher Hasher, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: store, hasher: hasher, logger: logger}
}

// Create adds a user with any role. Unlike self-service sign-up it is not
// subject to role restrictions.
func (s *UserService) Create(ctx context.Context, req *api.SignUpRequest) (*api.User, error) {
	if apiErr := api.Validate(req); apiErr != nil {
		return nil, apiErr
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Save(ctx, &api.User{
		ID:           api.NewUserID(),
		Login:        req.Login,
		PasswordHash: hash,
		Role:         req.Role,
	})
	if err != nil {
		return nil, userError(err, uuid.Nil)
	}
	s.logger.Info("user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*api.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, userError(err, id)
	}
	return u, nil
}

// List returns every user ordered by login.
func (s *UserService) List(ctx context.Context) ([]*api.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Update replaces login and role of user id. A non-empty password is
// hashed; an empty one keeps the stored hash.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *api.UpdateUserRequest) (*api.User, error) {
	if apiErr := api.Validate(req); apiErr != nil {
		return nil, apiErr
	}

	existing, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, userError(err, id)
	}

	existing.Login = req.Login
	existing.Role = req.Role
	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		existing.PasswordHash = hash
	}

	updated, err := s.store.UpdateUser(ctx, existing)
	if err != nil {
		return nil, userError(err, id)
	}
	s.logger.Info("user updated", "user_id", id, "role", updated.Role, "password_changed", req.Password != "")
	return updated, nil
}

// Delete removes user id.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return userError(err, id)
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func userError(err error, id uuid.UUID) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return api.NewNotFoundError(fmt.Sprintf("User with ID: %s not found", id))
	case errors.Is(err, storage.ErrConflict):
		return api.NewConflictError("login", "login already exists")
	default:
		return fmt.Errorf("user store: %w", err)
	}
}
