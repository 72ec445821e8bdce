package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/storage"
)

// ProductService manages inventory items.
type ProductService struct {
	store  storage.ProductStore
	logger *slog.Logger
}

// NewProductService creates a ProductService. A nil logger uses slog.Default().
func NewProductService(store storage.ProductStore, logger *slog.Logger) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{store: store, logger: logger}
}

// Create validates req and stores a new product.
func (s *ProductService) Create(ctx context.Context, req *api.ProductRequest) (*api.Product, error) {
	if apiErr := api.Validate(req); apiErr != nil {
		return nil, apiErr
	}

	p, err := s.store.CreateProduct(ctx, api.ProductFromRequest(req))
	if err != nil {
		return nil, productError(err, 0)
	}
	s.logger.Info("product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// Get returns a single product.
func (s *ProductService) Get(ctx context.Context, id int64) (*api.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, productError(err, id)
	}
	return p, nil
}

// List returns every product ordered by ID.
func (s *ProductService) List(ctx context.Context) ([]*api.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// Update replaces the fields of product id.
func (s *ProductService) Update(ctx context.Context, id int64, req *api.ProductRequest) (*api.Product, error) {
	if apiErr := api.Validate(req); apiErr != nil {
		return nil, apiErr
	}

	p := api.ProductFromRequest(req)
	p.ID = id
	updated, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return nil, productError(err, id)
	}
	s.logger.Info("product updated", "product_id", id)
	return updated, nil
}

// Delete removes product id.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return productError(err, id)
	}
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

// DeletedMessage is the confirmation body returned by DELETE routes.
func DeletedMessage(kind string, id any) api.MessageResponse {
	return api.MessageResponse{Message: fmt.Sprintf("%s with ID: %v deleted successfully.", kind, id)}
}

func productError(err error, id int64) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return api.NewNotFoundError(fmt.Sprintf("Product with ID: %d not found", id))
	case errors.Is(err, storage.ErrConflict):
		return api.NewConflictError("name", "product name already exists")
	default:
		return fmt.Errorf("product store: %w", err)
	}
}
