package server

import (
	"errors"
	"net/http"

	customerdomain "github.com/aramabarzani/creditbook/internal/customer/domain"
	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	memberdomain "github.com/aramabarzani/creditbook/internal/member/domain"
	ownerdomain "github.com/aramabarzani/creditbook/internal/owner/domain"
	quotadomain "github.com/aramabarzani/creditbook/internal/quota/domain"
	"github.com/aramabarzani/creditbook/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

// apiError is the wire shape every handler failure renders.
type apiError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

var ErrNotFound = &apiError{
	Status:  http.StatusNotFound,
	Code:    "not_found",
	Message: "resource not found",
}

func invalidRequestError() *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

func rateLimitedError() *apiError {
	return &apiError{
		Status:  http.StatusTooManyRequests,
		Code:    "rate_limited",
		Message: "too many requests",
	}
}

// AbortWithError translates a service error into the response envelope.
func AbortWithError(c *gin.Context, err error) {
	resolved := resolveError(err)
	c.AbortWithStatusJSON(resolved.Status, gin.H{"error": resolved})
}

func resolveError(err error) *apiError {
	var api *apiError
	if errors.As(err, &api) {
		return api
	}

	var limitErr *quotadomain.LimitError
	if errors.As(err, &limitErr) {
		return &apiError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "limit_reached",
			Message: "plan limit reached",
			Details: map[string]any{
				"kind":  string(limitErr.Kind),
				"limit": limitErr.Limit,
			},
		}
	}
	var creditErr *ledgerdomain.CreditLimitError
	if errors.As(err, &creditErr) {
		return &apiError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "credit_limit_exceeded",
			Message: "debt would exceed the customer's credit limit",
			Details: map[string]any{
				"available_credit": creditErr.AvailableCredit,
			},
		}
	}

	switch {
	case errors.Is(err, ownerdomain.ErrOwnerNotFound),
		errors.Is(err, licensedomain.ErrLicenseNotFound),
		errors.Is(err, customerdomain.ErrCustomerNotFound),
		errors.Is(err, ledgerdomain.ErrCustomerNotFound),
		errors.Is(err, ledgerdomain.ErrTransactionNotFound),
		errors.Is(err, memberdomain.ErrMemberNotFound):
		return &apiError{Status: http.StatusNotFound, Code: err.Error(), Message: "resource not found"}

	case errors.Is(err, licensedomain.ErrLicenseSuspended),
		errors.Is(err, licensedomain.ErrLicenseExpired),
		errors.Is(err, ledgerdomain.ErrCustomerBlacklisted):
		return &apiError{Status: http.StatusForbidden, Code: err.Error(), Message: "operation not permitted"}

	case errors.Is(err, quotadomain.ErrLimitReached):
		return &apiError{Status: http.StatusUnprocessableEntity, Code: err.Error(), Message: "plan limit reached"}

	case errors.Is(err, ledgerdomain.ErrCreditLimitExceeded):
		return &apiError{Status: http.StatusUnprocessableEntity, Code: err.Error(), Message: "credit limit exceeded"}

	case errors.Is(err, ownerdomain.ErrEmailTaken),
		errors.Is(err, ledgerdomain.ErrAlreadySettled):
		return &apiError{Status: http.StatusConflict, Code: err.Error(), Message: "conflicting state"}

	case errors.Is(err, ownerdomain.ErrInvalidName),
		errors.Is(err, ownerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidCreditLimit),
		errors.Is(err, memberdomain.ErrInvalidName),
		errors.Is(err, memberdomain.ErrInvalidRole),
		errors.Is(err, ledgerdomain.ErrInvalidType),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidStatus),
		errors.Is(err, licensedomain.ErrInvalidOwner),
		errors.Is(err, licensedomain.ErrInvalidPlan),
		errors.Is(err, licensedomain.ErrInvalidDuration),
		errors.Is(err, quotadomain.ErrInvalidKind),
		errors.Is(err, quotadomain.ErrInvalidCount),
		errors.Is(err, pagination.ErrInvalidPageToken):
		return &apiError{Status: http.StatusBadRequest, Code: err.Error(), Message: "invalid request"}

	default:
		return &apiError{
			Status:  http.StatusInternalServerError,
			Code:    "internal_error",
			Message: "internal server error",
		}
	}
}
