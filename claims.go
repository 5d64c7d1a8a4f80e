package mudradesk

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims represents structured session claims
type AuthClaims interface {
	Subject() string
	AccountID() string
	Email() string
	IsAdmin() bool
	IsSuperAdmin() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete implementation of AuthClaims carried in
// the session cookie. The super-admin marker travels with the token
// because that identity never exists in the store.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID          string `json:"uid,omitempty"`
	AccountEmail string `json:"eml,omitempty"`
	Admin        bool   `json:"adm,omitempty"`
	SuperAdmin   bool   `json:"sup,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*SessionClaims)(nil)

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID returns the account ID
func (c *SessionClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the email embedded in the claims, if any
func (c *SessionClaims) Email() string {
	return c.AccountEmail
}

// IsAdmin reports whether the session carries the admin flag
func (c *SessionClaims) IsAdmin() bool {
	return c.Admin
}

// IsSuperAdmin reports whether this is an env-credential session
func (c *SessionClaims) IsSuperAdmin() bool {
	return c.SuperAdmin
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
