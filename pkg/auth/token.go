package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the fixed lifetime of an identity token
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrSigning is returned when a token cannot be signed
	ErrSigning = errors.New("could not sign token")
	// ErrInvalidToken is returned for tampered, expired or malformed tokens
	ErrInvalidToken = errors.New("could not authenticate token")
)

// Claims is the JWT payload issued to authenticated callers
type Claims struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 identity tokens with a shared secret
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a codec. A non-positive ttl uses DefaultTokenTTL.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the codec that reads time from now
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	clone := *c
	clone.now = now
	return &clone
}

// TTL returns the lifetime applied to new tokens
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Sign issues a token for the identity that expires TTL after now
func (c *TokenCodec) Sign(identity Identity) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("%w: secret is not configured", ErrSigning)
	}

	issuedAt := c.now()
	claims := Claims{
		ID:   identity.ID,
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify parses the token and returns the identity it carries
func (c *TokenCodec) Verify(token string) (Identity, error) {
	if len(c.secret) == 0 || token == "" {
		return Identity{}, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if !claims.Role.Assignable() {
		return Identity{}, fmt.Errorf("%w: unexpected role %q", ErrInvalidToken, claims.Role)
	}

	return Identity{ID: claims.ID, Role: claims.Role}, nil
}
