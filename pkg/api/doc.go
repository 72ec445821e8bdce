// Package api defines the wire types for the StockFlow inventory API.
//
// It covers the credential record and product entities, the request and
// response bodies for every endpoint, the structured error body, and
// request validation. Response bodies are built by pure constructors
// ([NewUserResponse], [NewProductResponse]) so that stored entities are
// never mutated on their way out.
//
// Core types:
//   - [User]: Stored credential record (the password hash never serializes)
//   - [Product]: Inventory item
//   - [Role]: ADMIN or COMMON
//   - [APIError]: Structured error with type, param, and message
//   - [ErrorResponse]: Error body with status, message, timestamp, and path
package api
