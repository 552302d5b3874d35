package domain

import (
	"context"
	"errors"

	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type RegisterResponse struct {
	Owner   Owner                 `json:"owner"`
	License licensedomain.License `json:"license"`
}

// Service registers owners. Registration creates the owner row and its
// free-plan license in one transaction; the license is never deleted
// afterwards, only mutated.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	GetByID(ctx context.Context, ownerID snowflake.ID) (*Owner, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrEmailTaken    = errors.New("email_taken")
	ErrOwnerNotFound = errors.New("owner_not_found")
)
