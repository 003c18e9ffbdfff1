package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/platinummonkey/acquisitions/pkg/users"
)

const uniqueViolation = "23505"

var (
	publicColumns  = []string{"id", "name", "email", "role", "created_at", "updated_at"}
	createdColumns = "id, name, email, role, created_at"
	deletedColumns = "id, email, name, role"
)

// UserStore implements users.Directory on top of bun
type UserStore struct {
	db  bun.IDB
	now func() time.Time
}

var _ users.Directory = (*UserStore)(nil)

// NewUserStore creates a user store. db may be a *bun.DB or a bun.Tx.
func NewUserStore(db bun.IDB) *UserStore {
	return &UserStore{
		db:  db,
		now: time.Now,
	}
}

// ListAll returns every user ordered by id
func (s *UserStore) ListAll(ctx context.Context) ([]users.Public, error) {
	var rows []users.User
	err := s.db.NewSelect().
		Model(&rows).
		Column(publicColumns...).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	result := make([]users.Public, 0, len(rows))
	for i := range rows {
		result = append(result, *rows[i].Public())
	}
	return result, nil
}

// GetByID returns the public projection of one user
func (s *UserStore) GetByID(ctx context.Context, id int64) (*users.Public, error) {
	user := new(users.User)
	err := s.db.NewSelect().
		Model(user).
		Column(publicColumns...).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user.Public(), nil
}

// FindByEmail returns the full row, password hash included
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	user := new(users.User)
	err := s.db.NewSelect().
		Model(user).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// Create inserts the user and fills in the generated id
func (s *UserStore) Create(ctx context.Context, user *users.User) (*users.Created, error) {
	now := s.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	_, err := s.db.NewInsert().
		Model(user).
		Returning(createdColumns).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, users.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user.Created(), nil
}

// Update applies changes and refreshes updated_at in one statement
func (s *UserStore) Update(ctx context.Context, id int64, changes users.Changes) (*users.Public, error) {
	user := new(users.User)
	q := s.db.NewUpdate().
		Model(user).
		Where("id = ?", id)

	if changes.Name != nil {
		q = q.Set("name = ?", *changes.Name)
	}
	if changes.Email != nil {
		q = q.Set("email = ?", *changes.Email)
	}
	if changes.Role != nil {
		q = q.Set("role = ?", string(*changes.Role))
	}

	res, err := q.
		Set("updated_at = ?", s.now().UTC()).
		Returning(strings.Join(publicColumns, ", ")).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, users.ErrDuplicateEmail
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, users.ErrNotFound
	}
	return user.Public(), nil
}

// Delete removes the row and returns what was removed
func (s *UserStore) Delete(ctx context.Context, id int64) (*users.Deleted, error) {
	user := new(users.User)
	res, err := s.db.NewDelete().
		Model(user).
		Where("id = ?", id).
		Returning(deletedColumns).
		Exec(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, users.ErrNotFound
	}
	return user.Deleted(), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
