// Package inventory implements the product and user management services
// behind the /api routes. Services validate requests, translate storage
// sentinels into API errors, and never expose password hashes.
package inventory
