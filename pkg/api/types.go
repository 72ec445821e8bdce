package api

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the fixed set of roles a user can hold.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleCommon Role = "COMMON"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCommon
}

// ParseRole converts s into a Role. Matching is exact.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is the stored credential record. PasswordHash holds the bcrypt
// output and is never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Login        string    `json:"login"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
}

// Product is a stored inventory item.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignInResponse is returned by a successful sign-in.
type SignInResponse struct {
	Token string `json:"token"`
}

// SignUpRequest is the body of POST /auth/signup and POST /api/user.
// Passwords are capped at 72 bytes, the bcrypt input limit.
type SignUpRequest struct {
	Login    string `json:"login" validate:"required,notblank,max=100"`
	Password string `json:"password" validate:"required,maxbytes=72"`
	Role     Role   `json:"role" validate:"required,oneof=ADMIN COMMON"`
}

// SignUpResponse is returned by a successful sign-up.
type SignUpResponse struct {
	ID    uuid.UUID `json:"id"`
	Login string    `json:"login"`
	Role  Role      `json:"role"`
}

// UpdateUserRequest is the body of PUT /api/user/{id}. An empty password
// keeps the stored hash.
type UpdateUserRequest struct {
	Login    string `json:"login" validate:"required,notblank,max=100"`
	Password string `json:"password" validate:"omitempty,maxbytes=72"`
	Role     Role   `json:"role" validate:"required,oneof=ADMIN COMMON"`
}

// UserResponse is the public view of a User.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Login string    `json:"login"`
	Role  Role      `json:"role"`
}

// ProductRequest is the body of POST /api/product and PUT /api/product/{id}.
type ProductRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=100"`
	Description string  `json:"description" validate:"required,notblank"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    *int64  `json:"quantity" validate:"required,gte=0"`
}

// ProductResponse is the public view of a Product.
type ProductResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
}

// MessageResponse carries a human-readable confirmation, used by deletes.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewSignUpResponse builds the sign-up body from a stored user.
func NewSignUpResponse(u *User) SignUpResponse {
	return SignUpResponse{ID: u.ID, Login: u.Login, Role: u.Role}
}

// NewUserResponse builds the public view of a stored user.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{ID: u.ID, Login: u.Login, Role: u.Role}
}

// NewUserResponses maps a slice of users to their public views.
func NewUserResponses(users []*User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// NewProductResponse builds the public view of a stored product.
func NewProductResponse(p *Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
	}
}

// NewProductResponses maps a slice of products to their public views.
func NewProductResponses(products []*Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, NewProductResponse(p))
	}
	return out
}

// ProductFromRequest builds an unsaved product from a validated request.
func ProductFromRequest(req *ProductRequest) *Product {
	p := &Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	return p
}
