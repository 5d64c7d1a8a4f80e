package mudradesk

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the derived lifecycle state of an account.
type AccountStatus string

const (
	// AccountStatusPending means the account registered but no admin approved it yet.
	AccountStatusPending AccountStatus = "pending_approval"
	// AccountStatusActive means the account is approved (or is an admin) and active.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusDeactivated means an admin toggled the account off. Reversible.
	AccountStatusDeactivated AccountStatus = "deactivated"
	// AccountStatusDeleted is terminal: the record is removed from the store.
	AccountStatusDeleted AccountStatus = "deleted"
)

// Account is the business account model
type Account struct {
	bun.BaseModel   `bun:"table:accounts,alias:acc"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash    string     `bun:"password_hash,notnull" json:"-"`
	BusinessName    string     `bun:"business_name,notnull" json:"business_name,omitempty"`
	OwnerName       string     `bun:"owner_name" json:"owner_name,omitempty"`
	BusinessAddress string     `bun:"business_address" json:"business_address,omitempty"`
	Mobile          string     `bun:"mobile" json:"mobile,omitempty"`
	GSTNumber       string     `bun:"gst_number" json:"gst_number,omitempty"`
	GSTVerified     bool       `bun:"gst_verified" json:"gst_verified,omitempty"`
	Admin           bool       `bun:"is_admin" json:"is_admin,omitempty"`
	Approved        bool       `bun:"is_approved" json:"is_approved,omitempty"`
	Active          bool       `bun:"is_active" json:"is_active,omitempty"`
	ApprovedAt      *time.Time `bun:"approved_at,nullzero" json:"approved_at,omitempty"`
	ApprovedBy      *uuid.UUID `bun:"approved_by,nullzero,type:uuid" json:"approved_by,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Status derives the lifecycle state from the persisted flags. The store
// never carries a status column; deactivation wins over approval, and
// admins are active without an approval record.
func (a *Account) Status() AccountStatus {
	if a == nil {
		return ""
	}
	if !a.Active {
		return AccountStatusDeactivated
	}
	if a.Approved || a.Admin {
		return AccountStatusActive
	}
	return AccountStatusPending
}

// DisplayName picks the best label for greeting the account holder.
func (a *Account) DisplayName() string {
	if a == nil {
		return ""
	}
	if name := strings.TrimSpace(a.OwnerName); name != "" {
		return name
	}
	if name := strings.TrimSpace(a.BusinessName); name != "" {
		return name
	}
	return a.Email
}
