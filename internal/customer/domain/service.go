package domain

import (
	"context"
	"errors"

	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	"github.com/aramabarzani/creditbook/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type CreateCustomerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	CreditLimit int64  `json:"credit_limit"`
}

type ListCustomerRequest struct {
	PageToken string
	PageSize  int
	Name      string
}

type ListCustomerResponse struct {
	Customers []Customer          `json:"customers"`
	PageInfo  pagination.PageInfo `json:"page_info"`
}

// Ledger is the read-only aggregate over a customer's transaction log. The
// derived totals must agree with the incrementally maintained balances.
type Ledger struct {
	Debts           []ledgerdomain.Transaction `json:"debts"`
	Payments        []ledgerdomain.Transaction `json:"payments"`
	TotalDebt       int64                      `json:"total_debt"`
	TotalPaid       int64                      `json:"total_paid"`
	CurrentDebt     int64                      `json:"current_debt"`
	AvailableCredit int64                      `json:"available_credit"`
}

// Service manages customer rows. Creation is quota-checked inside the same
// database transaction that inserts the row.
type Service interface {
	Create(ctx context.Context, ownerID snowflake.ID, req CreateCustomerRequest) (*Customer, error)
	GetByID(ctx context.Context, ownerID, customerID snowflake.ID) (*Customer, error)
	List(ctx context.Context, ownerID snowflake.ID, req ListCustomerRequest) (ListCustomerResponse, error)
	SetBlacklist(ctx context.Context, ownerID, customerID snowflake.ID, blacklisted bool) (*Customer, error)
	Ledger(ctx context.Context, ownerID, customerID snowflake.ID) (*Ledger, error)
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidCreditLimit = errors.New("invalid_credit_limit")
	ErrCustomerNotFound   = errors.New("customer_not_found")
)
