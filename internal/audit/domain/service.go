package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Entry is a pending audit record.
type Entry struct {
	OwnerID    snowflake.ID
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListFilter struct {
	OwnerID snowflake.ID
	Action  string
	StartAt *time.Time
	EndAt   *time.Time
	Limit   int
}

// Service appends audit records. Failures are logged, never surfaced to the
// caller: bookkeeping writes do not fail because auditing did.
type Service interface {
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, filter ListFilter) ([]AuditLog, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, row *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}
