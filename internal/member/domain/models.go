package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role classifies a member for quota purposes.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether the role names a known member class.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Member is a staff or admin account under an owner. Active rows are the
// ones the plan quotas count.
type Member struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID   snowflake.ID `gorm:"not null;index:ix_members_owner_role,priority:1" json:"owner_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Role      Role         `gorm:"type:text;not null;index:ix_members_owner_role,priority:2" json:"role"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }
