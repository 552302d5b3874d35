package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Reason classifies why a license failed validation.
type Reason string

const (
	ReasonNotFound  Reason = "not_found"
	ReasonSuspended Reason = "suspended"
	ReasonExpired   Reason = "expired"
)

// Validation is the outcome of checking an owner's license. Invalid results
// carry a renew hint the caller is expected to surface.
type Validation struct {
	Valid     bool     `json:"valid"`
	License   *License `json:"license,omitempty"`
	Reason    Reason   `json:"reason,omitempty"`
	RenewHint string   `json:"renew_hint,omitempty"`
}

// Err maps an invalid validation onto its sentinel error.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	switch v.Reason {
	case ReasonSuspended:
		return ErrLicenseSuspended
	case ReasonExpired:
		return ErrLicenseExpired
	default:
		return ErrLicenseNotFound
	}
}

// RenewRequest mutates a license atomically: plan, validity window, quotas
// and features are never observable in a partially applied state.
type RenewRequest struct {
	Plan      Plan          `json:"plan"`
	Duration  time.Duration `json:"-"`
	Months    int           `json:"months"`
	AutoRenew *bool         `json:"auto_renew,omitempty"`
}

// Service validates and renews owner licenses.
type Service interface {
	// Validate reports whether the owner may operate. Observing a passed
	// expiry date persists status=expired as an idempotent side effect.
	Validate(ctx context.Context, ownerID snowflake.ID) (Validation, error)
	// Renew replaces the plan and validity window and reactivates the
	// license.
	Renew(ctx context.Context, ownerID snowflake.ID, req RenewRequest) (*License, error)
	// GetByOwner returns the stored license row without side effects.
	GetByOwner(ctx context.Context, ownerID snowflake.ID) (*License, error)
}

var (
	ErrInvalidOwner     = errors.New("invalid_owner")
	ErrInvalidPlan      = errors.New("invalid_plan")
	ErrInvalidDuration  = errors.New("invalid_duration")
	ErrLicenseNotFound  = errors.New("license_not_found")
	ErrLicenseSuspended = errors.New("license_suspended")
	ErrLicenseExpired   = errors.New("license_expired")
)
