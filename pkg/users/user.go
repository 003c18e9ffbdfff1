package users

import (
	"errors"
	"time"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when no user matches the lookup
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when an insert or update collides on email
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

// User is the persisted account row
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	Password  string    `bun:"password,notnull" json:"-"`
	Role      auth.Role `bun:"role,notnull" json:"role"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Public is the projection returned by list, get, update and sign-in
type Public struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Created is the projection returned by sign-up
type Created struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Deleted is the minimal projection returned after a delete
type Deleted struct {
	ID    int64     `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  auth.Role `json:"role"`
}

// Public returns the password-free projection of the user
func (u *User) Public() *Public {
	return &Public{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Created returns the sign-up projection of the user
func (u *User) Created() *Created {
	return &Created{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Deleted returns the delete projection of the user
func (u *User) Deleted() *Deleted {
	return &Deleted{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

// Identity returns the token subject for the user
func (u *User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID, Role: u.Role}
}

// Changes holds the validated fields of a partial update.
// A nil field is left untouched.
type Changes struct {
	Name  *string
	Email *string
	Role  *auth.Role
}

// Empty reports whether no field is set
func (c Changes) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Role == nil
}

// Fields lists the names of the fields being changed
func (c Changes) Fields() []string {
	fields := make([]string, 0, 3)
	if c.Name != nil {
		fields = append(fields, "name")
	}
	if c.Email != nil {
		fields = append(fields, "email")
	}
	if c.Role != nil {
		fields = append(fields, "role")
	}
	return fields
}
