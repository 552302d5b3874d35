package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateMemberRequest struct {
	Name string `json:"name" binding:"required"`
	Role Role   `json:"role" binding:"required"`
}

// Service manages the staff and admin roster for an owner.
type Service interface {
	Create(ctx context.Context, ownerID snowflake.ID, req CreateMemberRequest) (*Member, error)
	List(ctx context.Context, ownerID snowflake.ID, role Role) ([]Member, error)
	Deactivate(ctx context.Context, ownerID, memberID snowflake.ID) (*Member, error)
}

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrMemberNotFound = errors.New("member_not_found")
)
