package users

import "context"

// Directory is the data-access contract for user rows
type Directory interface {
	// ListAll returns every user without the password hash
	ListAll(ctx context.Context) ([]Public, error)

	// GetByID returns ErrNotFound when the row is absent
	GetByID(ctx context.Context, id int64) (*Public, error)

	// FindByEmail returns the full row including the hash, or ErrNotFound
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create inserts the user, returning ErrDuplicateEmail on collision
	Create(ctx context.Context, user *User) (*Created, error)

	// Update applies changes and stamps updated_at in a single statement.
	// Returns ErrNotFound when no row matched.
	Update(ctx context.Context, id int64, changes Changes) (*Public, error)

	// Delete removes the row in a single statement and returns what was removed.
	// Returns ErrNotFound when no row matched.
	Delete(ctx context.Context, id int64) (*Deleted, error)
}
