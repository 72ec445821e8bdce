// Package transport defines the service interfaces and HTTP middleware
// chain for the StockFlow API.
//
// # Service Interfaces
//
// The HTTP adapter in pkg/transport/http depends only on the interfaces
// declared here:
//
//   - AuthService handles sign-in and sign-up.
//   - ProductService handles inventory CRUD.
//   - UserService handles administrative user management.
//
// # Errors
//
// Every failed request is answered with the same JSON shape
// (api.ErrorResponse). WriteError maps api.APIError types and the storage
// sentinels to HTTP status codes so handlers and middleware never pick
// status codes by hand.
//
// # Middleware
//
// Middleware wraps http.Handler. Built-in middleware provides panic
// recovery and request ID assignment (X-Request-ID). Chain composes them so
// the first middleware is the outermost wrapper.
package transport
