package auth

// Role is the caller role carried in identity tokens and stored on users
type Role string

const (
	RoleGuest Role = "guest" // No valid token, only resolved by the security layer
	RoleUser  Role = "user"  // Default role for new accounts
	RoleAdmin Role = "admin" // Full access to every user record
)

// String implements fmt.Stringer
func (r Role) String() string {
	return string(r)
}

// Assignable reports whether the role may be persisted on a user record
func (r Role) Assignable() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the verified subject of a request
type Identity struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Owns reports whether the identity refers to the given user ID
func (i Identity) Owns(userID int64) bool {
	return i.ID == userID
}
