package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Type distinguishes the two ledger directions: debt raises a customer's
// outstanding balance, payment lowers it.
type Type string

const (
	TypeDebt    Type = "debt"
	TypePayment Type = "payment"
)

// Status is the settlement state of a transaction. Rows are immutable after
// creation except for status and paid_date.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Transaction is one immutable debt or payment record. Corrections are new
// offsetting rows, never in-place edits.
type Transaction struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OwnerID    snowflake.ID      `gorm:"not null;uniqueIndex:ux_transactions_owner_receipt,priority:1;index:ix_transactions_owner_customer,priority:1" json:"owner_id"`
	CustomerID snowflake.ID      `gorm:"not null;index:ix_transactions_owner_customer,priority:2" json:"customer_id"`
	Type       Type              `gorm:"type:text;not null" json:"type"`
	Amount     int64             `gorm:"not null" json:"amount"`
	Status     Status            `gorm:"type:text;not null;default:pending" json:"status"`
	ReceiptNo  int64             `gorm:"not null;uniqueIndex:ux_transactions_owner_receipt,priority:2" json:"receipt_no"`
	Note       string            `gorm:"type:text" json:"note,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"not null;default:'{}'" json:"metadata,omitempty"`
	DueDate    *time.Time        `json:"due_date,omitempty"`
	PaidDate   *time.Time        `json:"paid_date,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

// ReceiptSequence is the per-owner monotonic receipt counter, bumped inside
// the same transaction that inserts the ledger row.
type ReceiptSequence struct {
	OwnerID   snowflake.ID `gorm:"primaryKey" json:"owner_id"`
	LastValue int64        `gorm:"not null;default:0" json:"last_value"`
}

// TableName sets the database table name.
func (ReceiptSequence) TableName() string { return "receipt_sequences" }

// Balances is the customer ledger state after a write.
type Balances struct {
	CurrentDebt     int64 `json:"current_debt"`
	TotalPaid       int64 `json:"total_paid"`
	AvailableCredit int64 `json:"available_credit"`
}
