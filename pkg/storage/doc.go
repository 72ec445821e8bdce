// Package storage provides what the storage adapters share: the sentinel
// errors every adapter returns and the interfaces they satisfy.
//
// Adapters (memory, postgres) implement both [UserStore] and [ProductStore].
// The authentication core consumes only the narrow credential lookup
// (FindByLogin, Save) and declares that contract itself in pkg/auth.
package storage
