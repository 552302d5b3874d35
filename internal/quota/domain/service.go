package domain

import (
	"context"
	"errors"
	"fmt"

	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	"github.com/bwmarrin/snowflake"
)

// ResourceKind names a quota-limited resource.
type ResourceKind string

const (
	ResourceAdmins    ResourceKind = "admins"
	ResourceStaff     ResourceKind = "staff"
	ResourceCustomers ResourceKind = "customers"
)

// CheckResult reports whether one more resource may be created. An invalid
// license yields {Allowed: false, Limit: 0}.
type CheckResult struct {
	Allowed bool `json:"allowed"`
	Limit   int  `json:"limit"`
}

// Service decides resource-creation admission under the active license.
type Service interface {
	// Check compares a caller-supplied live count against the plan limit.
	// The comparison is strict: a limit of N admits at most N resources.
	Check(ctx context.Context, ownerID snowflake.ID, kind ResourceKind, currentCount int) (CheckResult, error)
}

var (
	ErrInvalidKind  = errors.New("invalid_resource_kind")
	ErrInvalidCount = errors.New("invalid_count")
	ErrLimitReached = errors.New("limit_reached")
)

// LimitError reports a rejected creation together with the plan limit so
// callers can render it.
type LimitError struct {
	Kind  ResourceKind
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("limit_reached: %s limit is %d", e.Kind, e.Limit)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitReached
}

// Valid reports whether the kind names a known resource.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceAdmins, ResourceStaff, ResourceCustomers:
		return true
	default:
		return false
	}
}

// LimitFor selects the quota field matching a resource kind.
func LimitFor(license *licensedomain.License, kind ResourceKind) (int, error) {
	if license == nil {
		return 0, ErrInvalidKind
	}
	switch kind {
	case ResourceAdmins:
		return license.MaxAdmins, nil
	case ResourceStaff:
		return license.MaxStaff, nil
	case ResourceCustomers:
		return license.MaxCustomers, nil
	default:
		return 0, ErrInvalidKind
	}
}
