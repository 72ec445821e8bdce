// Package postgres provides a PostgreSQL implementation of storage.Store.
// It uses pgx/v5 for connection pooling and embedded SQL migrations for
// the schema.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const userColumns = "id, login, password_hash, role"

// FindByLogin returns the user with the given login.
func (s *Store) FindByLogin(ctx context.Context, login string) (*api.User, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE login = $1", login)
	return scanUser(row)
}

// Save inserts a new user.
func (s *Store) Save(ctx context.Context, u *api.User) (*api.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, login, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		u.ID, u.Login, u.PasswordHash, string(u.Role),
	)
	saved, err := scanUser(row)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return saved, nil
}

// GetUser returns the user with the given ID.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*api.User, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// ListUsers returns all users ordered by login.
func (s *Store) ListUsers(ctx context.Context) ([]*api.User, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY login")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []*api.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// UpdateUser replaces an existing user's login, hash, and role.
func (s *Store) UpdateUser(ctx context.Context, u *api.User) (*api.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users SET login = $2, password_hash = $3, role = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.Login, u.PasswordHash, string(u.Role),
	)
	updated, err := scanUser(row)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, storage.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a user.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const productColumns = "id, name, description, price, quantity"

// CreateProduct inserts a product; the database assigns its ID.
func (s *Store) CreateProduct(ctx context.Context, p *api.Product) (*api.Product, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Price, p.Quantity,
	)
	created, err := scanProduct(row)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("inserting product: %w", err)
	}
	return created, nil
}

// GetProduct returns the product with the given ID.
func (s *Store) GetProduct(ctx context.Context, id int64) (*api.Product, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	return scanProduct(row)
}

// ListProducts returns all products ordered by ID.
func (s *Store) ListProducts(ctx context.Context) ([]*api.Product, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	products := []*api.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

// UpdateProduct replaces the fields of an existing product.
func (s *Store) UpdateProduct(ctx context.Context, p *api.Product) (*api.Product, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE products SET name = $2, description = $3, price = $4, quantity = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, p.Quantity,
	)
	updated, err := scanProduct(row)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, storage.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (*api.User, error) {
	var (
		u    api.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Role = api.Role(role)
	return &u, nil
}

func scanProduct(row pgx.Row) (*api.Product, error) {
	var p api.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scanning product: %w", err)
	}
	return &p, nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
