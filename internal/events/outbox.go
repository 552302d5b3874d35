package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes a domain event to store in the outbox. Delivery (SMS,
// WhatsApp, reporting) is an external consumer polling the table.
type Event struct {
	OwnerID   snowflake.ID
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// OutboxEvent is the persisted outbox row.
type OutboxEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	OwnerID   snowflake.ID      `gorm:"not null;uniqueIndex:ux_outbox_events_dedupe,priority:1"`
	EventType string            `gorm:"type:text;not null"`
	Payload   datatypes.JSONMap `gorm:"not null;default:'{}'"`
	DedupeKey *string           `gorm:"type:text;uniqueIndex:ux_outbox_events_dedupe,priority:2"`
	Published bool              `gorm:"not null;default:false"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OutboxEvent) TableName() string { return "outbox_events" }

// Outbox appends domain events, by preference inside the transaction that
// produced them.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event inside an existing transaction so the event row
// commits or rolls back together with the state change.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if event.OwnerID == 0 {
		return errors.New("invalid_owner_id")
	}
	eventType := strings.TrimSpace(event.Type)
	if eventType == "" {
		return errors.New("missing_event_type")
	}

	row := OutboxEvent{
		ID:        o.genID.Generate(),
		OwnerID:   event.OwnerID,
		EventType: eventType,
		Payload:   datatypes.JSONMap{},
		CreatedAt: time.Now().UTC(),
	}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		row.Payload[key] = value
	}
	if dedupe := strings.TrimSpace(event.DedupeKey); dedupe != "" {
		row.DedupeKey = &dedupe
	}

	return db.WithContext(ctx).Create(&row).Error
}
