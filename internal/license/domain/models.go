package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// Status is the lifecycle state of a license. The only transition out of
// expired is an explicit renewal.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
)

// License is the subscription record for one owner. Exactly one row exists
// per owner; it is created at registration and mutated in place.
type License struct {
	ID           snowflake.ID   `gorm:"primaryKey" json:"id"`
	OwnerID      snowflake.ID   `gorm:"not null;uniqueIndex:ux_licenses_owner" json:"owner_id"`
	Plan         Plan           `gorm:"type:text;not null" json:"plan"`
	Status       Status         `gorm:"type:text;not null;default:active" json:"status"`
	StartDate    time.Time      `gorm:"not null" json:"start_date"`
	ExpiryDate   time.Time      `gorm:"not null" json:"expiry_date"`
	MaxAdmins    int            `gorm:"not null" json:"max_admins"`
	MaxStaff     int            `gorm:"not null" json:"max_staff"`
	MaxCustomers int            `gorm:"not null" json:"max_customers"`
	Features     datatypes.JSON `gorm:"not null;default:'[]'" json:"features"`
	AutoRenew    bool           `gorm:"not null;default:false" json:"auto_renew"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (License) TableName() string { return "licenses" }

// FeatureList decodes the stored feature flags.
func (l License) FeatureList() []string {
	var features []string
	if len(l.Features) == 0 {
		return features
	}
	_ = json.Unmarshal(l.Features, &features)
	return features
}

// HasFeature reports whether the license carries a capability flag.
func (l License) HasFeature(name string) bool {
	for _, feature := range l.FeatureList() {
		if feature == name {
			return true
		}
	}
	return false
}

// ExpiredAt reports whether the license validity window has passed at the
// given instant.
func (l License) ExpiredAt(now time.Time) bool {
	return now.After(l.ExpiryDate)
}
