package mudradesk

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

const (
	superAdminEmailEnv    = "ADMIN_EMAIL"
	superAdminPasswordEnv = "ADMIN_PASSWORD"
)

// SuperAdmin is the env-credential operator identity. It short-circuits
// the account store entirely: the email/password pair comes from the
// environment and the resulting identity is never persisted.
type SuperAdmin struct {
	email    string
	password string
}

// SuperAdminFromEnv reads ADMIN_EMAIL and ADMIN_PASSWORD.
func SuperAdminFromEnv() SuperAdmin {
	return SuperAdmin{
		email:    os.Getenv(superAdminEmailEnv),
		password: os.Getenv(superAdminPasswordEnv),
	}
}

// NewSuperAdmin builds the identity from explicit credentials, mostly for tests.
func NewSuperAdmin(email, password string) SuperAdmin {
	return SuperAdmin{email: email, password: password}
}

// Configured reports whether both credentials are present.
func (s SuperAdmin) Configured() bool {
	return s.email != "" && s.password != ""
}

// Matches compares the submitted credentials: email case-insensitively
// and trimmed, password byte-exact.
func (s SuperAdmin) Matches(email, password string) bool {
	if !s.Configured() {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(s.email)) {
		return false
	}
	return password == s.password
}

// MintAccount fabricates the synthetic super-admin account. Every call
// mints a fresh id, so two concurrent super-admin sessions never share
// an identity.
func (s SuperAdmin) MintAccount() *Account {
	return &Account{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(s.email)),
		BusinessName: "Super Admin",
		Admin:        true,
		Approved:     true,
		Active:       true,
	}
}
