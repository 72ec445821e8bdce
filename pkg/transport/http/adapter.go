package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/debug"
	"github.com/stockflow/stockflow/pkg/inventory"
	"github.com/stockflow/stockflow/pkg/transport"
)

// HealthChecker reports whether a backing dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Services bundles the handlers the adapter dispatches to. Health may be
// nil, in which case /readyz always succeeds.
type Services struct {
	Auth     transport.AuthService
	Products transport.ProductService
	Users    transport.UserService
	Health   HealthChecker
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
	}
}

// Adapter serves the StockFlow API over HTTP.
// It routes requests to the appropriate service and serializes responses.
type Adapter struct {
	services Services
	mux      *http.ServeMux
	config   Config
}

// NewAdapter creates an HTTP adapter for the given services.
func NewAdapter(services Services, cfg Config) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		services: services,
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)

	a.mux.HandleFunc("POST /auth/signin", a.handleSignIn)
	a.mux.HandleFunc("POST /auth/signup", a.handleSignUp)

	a.mux.HandleFunc("POST /api/product", a.handleCreateProduct)
	a.mux.HandleFunc("GET /api/product", a.handleListProducts)
	a.mux.HandleFunc("GET /api/product/{id}", a.handleGetProduct)
	a.mux.HandleFunc("PUT /api/product/{id}", a.handleUpdateProduct)
	a.mux.HandleFunc("DELETE /api/product/{id}", a.handleDeleteProduct)

	a.mux.HandleFunc("POST /api/user", a.handleCreateUser)
	a.mux.HandleFunc("GET /api/user", a.handleListUsers)
	a.mux.HandleFunc("GET /api/user/{id}", a.handleGetUser)
	a.mux.HandleFunc("PUT /api/user/{id}", a.handleUpdateUser)
	a.mux.HandleFunc("DELETE /api/user/{id}", a.handleDeleteUser)

	return a
}

// Handle registers an additional handler, such as the metrics endpoint.
func (a *Adapter) Handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Handler returns the http.Handler for this adapter. Requests that match
// no route get the structured not_found body instead of the mux's plain
// text.
func (a *Adapter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := a.mux.Handler(r); pattern == "" {
			transport.WriteError(w, r, api.NewNotFoundError(fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)))
			return
		}
		a.mux.ServeHTTP(w, r)
	})
}

// decode reads a JSON body into v. It writes the error response itself and
// returns false when the body is unusable.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w, r,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		debug.Log("transport", "request body rejected", "path", r.URL.Path, "error", err)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w, r,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteError(w, r, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// handleHealthz handles GET /healthz.
func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz handles GET /readyz.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.services.Health != nil {
		if err := a.services.Health.HealthCheck(r.Context()); err != nil {
			transport.WriteErrorResponse(w, r, api.NewServerError("store unavailable"), http.StatusServiceUnavailable)
			return
		}
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleSignIn handles POST /auth/signin.
func (a *Adapter) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.services.Auth.SignIn(r.Context(), &req)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

// handleSignUp handles POST /auth/signup.
func (a *Adapter) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if !a.decode(w, r, &req) {
		return
	}
	resp, err := a.services.Auth.SignUp(r.Context(), &req)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, resp)
}

// handleCreateProduct handles POST /api/product.
func (a *Adapter) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req api.ProductRequest
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.services.Products.Create(r.Context(), &req)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, api.NewProductResponse(p))
}

// handleListProducts handles GET /api/product.
func (a *Adapter) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.services.Products.List(r.Context())
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewProductResponses(products))
}

// handleGetProduct handles GET /api/product/{id}.
func (a *Adapter) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, apiErr := api.ParseProductID(r.PathValue("id"))
	if apiErr != nil {
		transport.WriteError(w, r, apiErr)
		return
	}
	p, err := a.services.Products.Get(r.Context(), id)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewProductResponse(p))
}

// handleUpdateProduct handles PUT /api/product/{id}.
func (a *Adapter) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, apiErr := api.ParseProductID(r.PathValue("id"))
	if apiErr != nil {
		transport.WriteError(w, r, apiErr)
		return
	}
	var req api.ProductRequest
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.services.Products.Update(r.Context(), id, &req)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewProductResponse(p))
}

// handleDeleteProduct handles DELETE /api/product/{id}.
func (a *Adapter) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, apiErr := api.ParseProductID(r.PathValue("id"))
	if apiErr != nil {
		transport.WriteError(w, r, apiErr)
		return
	}
	if err := a.services.Products.Delete(r.Context(), id); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, inventory.DeletedMessage("Product", id))
}

// handleCreateUser handles POST /api/user.
func (a *Adapter) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.services.Users.Create(r.Context(), &req)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, api.NewUserResponse(u))
}

// handleListUsers handles GET /api/user.
func (a *Adapter) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.services.Users.List(r.Context())
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewUserResponses(users))
}

// handleGetUser handles GET /api/user/{id}.
func (a *Adapter) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, apiErr := api.ParseUserID(r.PathValue("id"))
	if apiErr != nil {
		transport.WriteError(w, r, apiErr)
		return
	}
	u, err := a.services.Users.Get(r.Context(), id)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewUserResponse(u))
}

// handleUpdateUser handles PUT /api/user/{id}.
func (a *Adapter) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, apiErr := api.ParseUserID(r.PathValue("id"))
	if apiErr != nil {
		transport.WriteError(w, r, apiErr)
		return
	}
	var req api.UpdateUserRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.services.Users.Update(r.Context(), id, &req)
	if err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, api.NewUserResponse(u))
}

// handleDeleteUser handles DELETE /api/user/{id}.
func (a *Adapter) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, apiErr := api.ParseUserID(r.PathValue("id"))
	if apiErr != nil {
		transport.WriteError(w, r, apiErr)
		return
	}
	if err := a.services.Users.Delete(r.Context(), id); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, inventory.DeletedMessage("User", id))
}
