// Package accounts orchestrates sign-up and sign-in on top of the user
// directory and the credential codec.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/platinummonkey/acquisitions/pkg/auth"
	"github.com/platinummonkey/acquisitions/pkg/contextkeys"
	"github.com/platinummonkey/acquisitions/pkg/observability"
	"github.com/platinummonkey/acquisitions/pkg/users"
)

var (
	// ErrDuplicateUser is returned when signing up with an email already on file
	ErrDuplicateUser = errors.New("user already exists")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// SignupInput is a validated sign-up request
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     auth.Role
}

// SigninInput is a validated sign-in request
type SigninInput struct {
	Email    string
	Password string
}

// PasswordHasher is the credential codec used by the service
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) (bool, error)
}

// Service implements account sign-up and sign-in
type Service struct {
	directory users.Directory
	hasher    PasswordHasher
	logger    *observability.Logger
	now       func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

// decoyPassword is hashed once and compared against when the email is
// unknown, so both sign-in failures spend the same hashing work.
const decoyPassword = "acquisitions-decoy-password"

// NewService creates an accounts service
func NewService(directory users.Directory, hasher PasswordHasher, logger *observability.Logger) *Service {
	return &Service{
		directory: directory,
		hasher:    hasher,
		logger:    logger,
		now:       time.Now,
	}
}

// Signup registers a new account. No row is inserted when the email is taken.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*users.Created, error) {
	log := s.loggerFor(ctx).WithField("email", in.Email)

	_, err := s.directory.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		log.Warn("Sign-up rejected: user already exists")
		return nil, ErrDuplicateUser
	case !errors.Is(err, users.ErrNotFound):
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = auth.RoleUser
	}

	now := s.now().UTC()
	created, err := s.directory.Create(ctx, &users.User{
		Name:      in.Name,
		Email:     in.Email,
		Password:  hash,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, users.ErrDuplicateEmail) {
		log.Warn("Sign-up lost a race on a duplicate email")
		return nil, ErrDuplicateUser
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.WithField("user_id", created.ID).Info("User created with email")
	return created, nil
}

// Signin checks credentials. Unknown emails and wrong passwords return the
// same error; the cause is only recorded in the log.
func (s *Service) Signin(ctx context.Context, in SigninInput) (*users.Public, error) {
	log := s.loggerFor(ctx).WithField("email", in.Email)

	user, err := s.directory.FindByEmail(ctx, in.Email)
	if errors.Is(err, users.ErrNotFound) {
		s.verifyDecoy(in.Password)
		log.WithField("reason", "user_not_found").Warn("Sign-in failed")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	ok, err := s.hasher.Verify(in.Password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		log.WithField("reason", "invalid_password").Warn("Sign-in failed")
		return nil, ErrInvalidCredentials
	}

	log.WithField("user_id", user.ID).Info("User authenticated successfully")
	return user.Public(), nil
}

// verifyDecoy runs a password comparison whose result is discarded
func (s *Service) verifyDecoy(plaintext string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(decoyPassword)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to prepare decoy password hash")
			return
		}
		s.decoyHash = hash
	})
	_, _ = s.hasher.Verify(plaintext, s.decoyHash)
}

func (s *Service) loggerFor(ctx context.Context) *observability.Logger {
	if requestID := contextkeys.GetRequestID(ctx); requestID != "" {
		return s.logger.WithField("request_id", requestID)
	}
	return s.logger
}
