// Package users defines the user entity, the projections returned to API
// callers and the Directory contract implemented by the storage layer.
//
// The stored password hash only ever lives on User and is tagged json:"-".
// Handlers respond with Public, Created or Deleted, none of which carry it.
package users
