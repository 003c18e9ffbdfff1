// Package auth provides the credential and identity token primitives used by
// the acquisitions API.
//
// # Overview
//
// Two codecs live here. Neither touches storage.
//
// Credential Codec: bcrypt password hashing at a fixed cost of 10
//
//	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)
//	hash, err := hasher.Hash("s3cret!")
//	ok, err := hasher.Verify("s3cret!", hash) // ok == true
//
// A mismatch is not an error: Verify returns false, nil. Only a malformed
// hash yields ErrComparison.
//
// Token Codec: HS256 JSON Web Tokens carrying the caller identity
//
//	codec := auth.NewTokenCodec(secret, auth.DefaultTokenTTL)
//	token, err := codec.Sign(auth.Identity{ID: 7, Role: auth.RoleUser})
//	identity, err := codec.Verify(token)
//
// Tokens expire one day after signing. Any token that fails signature,
// algorithm or expiry checks is rejected with ErrInvalidToken.
//
// # Roles
//
//	RoleGuest - Unauthenticated caller (never persisted)
//	RoleUser  - Regular account
//	RoleAdmin - Administrator
package auth
