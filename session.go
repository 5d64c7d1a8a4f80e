package mudradesk

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionObject is the decoded, transport-agnostic view of a session.
type SessionObject struct {
	AccountID      string     `json:"account_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	Admin          bool       `json:"admin,omitempty"`
	SuperAdmin     bool       `json:"super_admin,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) IsAdmin() bool {
	return s.Admin
}

func (s *SessionObject) IsSuperAdmin() bool {
	return s.SuperAdmin
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"account=%s admin=%t super=%t iss=%s iat=%s",
		s.AccountID,
		s.Admin,
		s.SuperAdmin,
		s.Issuer,
		issuedAt,
	)
}

// sessionFromClaims creates a SessionObject from validated claims
func sessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToParseData
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		AccountID:      claims.AccountID(),
		Email:          claims.Email(),
		Admin:          claims.IsAdmin(),
		SuperAdmin:     claims.IsSuperAdmin(),
		Issuer:         claims.RegisteredClaims.Issuer,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
