package accounts

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/users"
	"github.com/platinummonkey/acquisitions/pkg/users/userstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", auth.ErrHashing }
func (failingHasher) Verify(string, string) (bool, error) {
	return false, auth.ErrComparison
}

// countingHasher records how often each codec operation runs
type countingHasher struct {
	inner    PasswordHasher
	hashes   int
	verifies int
}

func (c *countingHasher) Hash(plaintext string) (string, error) {
	c.hashes++
	return c.inner.Hash(plaintext)
}

func (c *countingHasher) Verify(plaintext, hash string) (bool, error) {
	c.verifies++
	return c.inner.Verify(plaintext, hash)
}

func newTestService(t *testing.T) (*Service, *userstest.Directory, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	dir := userstest.NewDirectory()
	svc := NewService(dir, auth.NewBcryptHasher(bcrypt.MinCost), observability.NewLogger(observability.DebugLevel, &logs))
	return svc, dir, &logs
}

func TestSignup_Success(t *testing.T) {
	svc, dir, _ := newTestService(t)

	created, err := svc.Signup(context.Background(), SignupInput{
		Name:     "Jane",
		Email:    "jane@example.com",
		Password: "hunter22",
		Role:     auth.RoleUser,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "jane@example.com", created.Email)
	assert.Equal(t, auth.RoleUser, created.Role)
	assert.False(t, created.CreatedAt.IsZero())

	stored, ok := dir.Get(created.ID)
	require.True(t, ok)
	assert.NotEqual(t, "hunter22", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter22")))
}

func TestSignup_DefaultRole(t *testing.T) {
	svc, _, _ := newTestService(t)

	created, err := svc.Signup(context.Background(), SignupInput{Name: "Jo", Email: "jo@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, created.Role)
}

func TestSignup_DuplicateEmailInsertsNothing(t *testing.T) {
	svc, dir, _ := newTestService(t)
	dir.Seed(users.User{Name: "Existing", Email: "taken@example.com", Password: "x", Role: auth.RoleUser})

	_, err := svc.Signup(context.Background(), SignupInput{Name: "New", Email: "taken@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrDuplicateUser)
	assert.Equal(t, 0, dir.Creates)
	assert.Equal(t, 1, dir.Len())
}

func TestSignup_HashFailure(t *testing.T) {
	dir := userstest.NewDirectory()
	svc := NewService(dir, failingHasher{}, observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}))

	_, err := svc.Signup(context.Background(), SignupInput{Name: "Jo", Email: "jo@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, auth.ErrHashing)
	assert.Equal(t, 0, dir.Len())
}

func TestSignup_DirectoryFailure(t *testing.T) {
	svc, dir, _ := newTestService(t)
	dir.Err = errors.New("connection refused")

	_, err := svc.Signup(context.Background(), SignupInput{Name: "Jo", Email: "jo@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateUser)
}

func TestSignin_Success(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Signup(context.Background(), SignupInput{Name: "Jane", Email: "jane@example.com", Password: "hunter22", Role: auth.RoleAdmin})
	require.NoError(t, err)

	user, err := svc.Signin(context.Background(), SigninInput{Email: "jane@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", user.Name)
	assert.Equal(t, auth.RoleAdmin, user.Role)
}

func TestSignin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	svc, _, logs := newTestService(t)
	_, err := svc.Signup(context.Background(), SignupInput{Name: "Jane", Email: "jane@example.com", Password: "hunter22"})
	require.NoError(t, err)

	logs.Reset()
	_, unknownErr := svc.Signin(context.Background(), SigninInput{Email: "nobody@example.com", Password: "hunter22"})
	assert.Contains(t, logs.String(), "user_not_found")

	logs.Reset()
	_, wrongErr := svc.Signin(context.Background(), SigninInput{Email: "jane@example.com", Password: "wrong-pass"})
	assert.Contains(t, logs.String(), "invalid_password")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestSignin_UnknownEmailStillComparesPassword(t *testing.T) {
	hasher := &countingHasher{inner: auth.NewBcryptHasher(bcrypt.MinCost)}
	dir := userstest.NewDirectory()
	svc := NewService(dir, hasher, observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}))

	_, err := svc.Signup(context.Background(), SignupInput{Name: "Jane", Email: "jane@example.com", Password: "hunter22"})
	require.NoError(t, err)

	verifies := hasher.verifies
	_, err = svc.Signin(context.Background(), SigninInput{Email: "jane@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, verifies+1, hasher.verifies)

	verifies = hasher.verifies
	_, err = svc.Signin(context.Background(), SigninInput{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, verifies+1, hasher.verifies)

	// the decoy hash is computed once and reused
	hashes := hasher.hashes
	_, err = svc.Signin(context.Background(), SigninInput{Email: "ghost@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, hashes, hasher.hashes)
	assert.Equal(t, verifies+2, hasher.verifies)
}

func TestSignin_MalformedStoredHash(t *testing.T) {
	svc, dir, _ := newTestService(t)
	dir.Seed(users.User{Name: "Broken", Email: "broken@example.com", Password: "garbage", Role: auth.RoleUser})

	_, err := svc.Signin(context.Background(), SigninInput{Email: "broken@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, auth.ErrComparison)
	assert.False(t, strings.Contains(err.Error(), "whatever"))
}
