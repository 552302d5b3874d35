package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aramabarzani/creditbook/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

// RecordRequest describes a new debt or payment to append.
type RecordRequest struct {
	CustomerID snowflake.ID   `json:"customer_id"`
	Type       Type           `json:"type"`
	Amount     int64          `json:"amount"`
	Status     Status         `json:"status,omitempty"`
	Note       string         `json:"note,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	DueDate    *time.Time     `json:"due_date,omitempty"`
}

// RecordResponse returns the created row and the post-update balances.
type RecordResponse struct {
	Transaction Transaction `json:"transaction"`
	Balances    Balances    `json:"balances"`
}

type ListRequest struct {
	CustomerID snowflake.ID
	PageToken  string
	PageSize   int
}

type ListResponse struct {
	Transactions []Transaction       `json:"transactions"`
	PageInfo     pagination.PageInfo `json:"page_info"`
}

// Service is the only writer of customer ledger balances.
type Service interface {
	// Record appends a transaction and updates the owning customer's
	// balances in one atomic unit of work.
	Record(ctx context.Context, ownerID snowflake.ID, req RecordRequest) (*RecordResponse, error)
	// Settle marks a pending or overdue transaction completed.
	Settle(ctx context.Context, ownerID, transactionID snowflake.ID) (*Transaction, error)
	// List returns a customer's transactions, newest first.
	List(ctx context.Context, ownerID snowflake.ID, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidType         = errors.New("invalid_type")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrCustomerNotFound    = errors.New("customer_not_found")
	ErrCustomerBlacklisted = errors.New("customer_blacklisted")
	ErrCreditLimitExceeded = errors.New("credit_limit_exceeded")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrAlreadySettled      = errors.New("already_settled")
)

// CreditLimitError carries the remaining credit so callers can render it.
type CreditLimitError struct {
	AvailableCredit int64
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("credit_limit_exceeded: available credit %d", e.AvailableCredit)
}

func (e *CreditLimitError) Is(target error) bool {
	return target == ErrCreditLimitExceeded
}
