package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer holds one store customer's credit terms and running balances.
// current_debt and total_paid are written only by the ledger service; every
// consistency guarantee depends on that single-writer rule.
type Customer struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID       snowflake.ID `gorm:"not null;index:ix_customers_owner" json:"owner_id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Phone         string       `gorm:"type:text" json:"phone,omitempty"`
	CreditLimit   int64        `gorm:"not null;default:0" json:"credit_limit"`
	CurrentDebt   int64        `gorm:"not null;default:0" json:"current_debt"`
	TotalPaid     int64        `gorm:"not null;default:0" json:"total_paid"`
	IsBlacklisted bool         `gorm:"not null;default:false" json:"is_blacklisted"`
	IsActive      bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// AvailableCredit is the remaining headroom under the credit limit.
func (c Customer) AvailableCredit() int64 {
	available := c.CreditLimit - c.CurrentDebt
	if available < 0 {
		return 0
	}
	return available
}
