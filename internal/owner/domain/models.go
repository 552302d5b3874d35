package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Owner is a store account, the scoping root for every row in the system.
type Owner struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text;not null;uniqueIndex:ux_owners_email" json:"email"`
	Phone     string       `gorm:"type:text" json:"phone,omitempty"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Owner) TableName() string { return "owners" }
