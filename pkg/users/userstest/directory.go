// Package userstest provides an in-memory users.Directory for tests.
package userstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/platinummonkey/acquisitions/pkg/users"
)

// Directory is a goroutine-safe in-memory users.Directory
type Directory struct {
	mu     sync.Mutex
	rows   map[int64]*users.User
	nextID int64

	// Err, when set, is returned by every call
	Err error
	// Creates counts successful inserts
	Creates int
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{
		rows:   make(map[int64]*users.User),
		nextID: 1,
	}
}

// Seed stores a copy of user, assigning an ID when zero
func (d *Directory) Seed(user users.User) users.User {
	d.mu.Lock()
	defer d.mu.Unlock()

	if user.ID == 0 {
		user.ID = d.nextID
	}
	if user.ID >= d.nextID {
		d.nextID = user.ID + 1
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
		user.UpdatedAt = user.CreatedAt
	}
	stored := user
	d.rows[user.ID] = &stored
	return stored
}

// Get returns a copy of the stored row
func (d *Directory) Get(id int64) (users.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	row, ok := d.rows[id]
	if !ok {
		return users.User{}, false
	}
	return *row, true
}

// Len returns the number of stored rows
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows)
}

func (d *Directory) ListAll(ctx context.Context) ([]users.Public, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}

	out := make([]users.Public, 0, len(d.rows))
	for _, row := range d.rows {
		out = append(out, *row.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *Directory) GetByID(ctx context.Context, id int64) (*users.Public, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}

	row, ok := d.rows[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return row.Public(), nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}

	for _, row := range d.rows {
		if row.Email == email {
			found := *row
			return &found, nil
		}
	}
	return nil, users.ErrNotFound
}

func (d *Directory) Create(ctx context.Context, user *users.User) (*users.Created, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}

	for _, row := range d.rows {
		if row.Email == user.Email {
			return nil, users.ErrDuplicateEmail
		}
	}

	stored := *user
	stored.ID = d.nextID
	d.nextID++
	d.rows[stored.ID] = &stored
	d.Creates++

	user.ID = stored.ID
	return stored.Created(), nil
}

func (d *Directory) Update(ctx context.Context, id int64, changes users.Changes) (*users.Public, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}

	row, ok := d.rows[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	if changes.Email != nil {
		for otherID, other := range d.rows {
			if otherID != id && other.Email == *changes.Email {
				return nil, users.ErrDuplicateEmail
			}
		}
	}

	if changes.Name != nil {
		row.Name = *changes.Name
	}
	if changes.Email != nil {
		row.Email = *changes.Email
	}
	if changes.Role != nil {
		row.Role = *changes.Role
	}
	row.UpdatedAt = time.Now().UTC()
	return row.Public(), nil
}

func (d *Directory) Delete(ctx context.Context, id int64) (*users.Deleted, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}

	row, ok := d.rows[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	delete(d.rows, id)
	return row.Deleted(), nil
}

var _ users.Directory = (*Directory)(nil)
