package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "github.com/aramabarzani/creditbook/internal/audit/domain"
	"github.com/aramabarzani/creditbook/internal/cache"
	"github.com/aramabarzani/creditbook/internal/clock"
	"github.com/aramabarzani/creditbook/internal/events"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	renewHintBase    = "https://creditbook.app/renew"
	licenseCacheTTL  = 30 * time.Second
	defaultRenewTerm = 1
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Cache    cache.Cache[snowflake.ID, licensedomain.License] `optional:"true"`
	AuditSvc auditdomain.Service                              `optional:"true"`
	Outbox   *events.Outbox                                   `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	cache    cache.Cache[snowflake.ID, licensedomain.License]
	auditSvc auditdomain.Service
	outbox   *events.Outbox
}

func NewService(p Params) licensedomain.Service {
	c := p.Cache
	if c == nil {
		c = cache.NoopCache[snowflake.ID, licensedomain.License]{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("license.service"),
		clock:    p.Clock,
		cache:    c,
		auditSvc: p.AuditSvc,
		outbox:   p.Outbox,
	}
}

func (s *Service) Validate(ctx context.Context, ownerID snowflake.ID) (licensedomain.Validation, error) {
	if ownerID == 0 {
		return invalid(licensedomain.ReasonNotFound, ownerID), nil
	}

	license, cached := s.cache.Get(ownerID)
	if !cached {
		row, err := s.load(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid(licensedomain.ReasonNotFound, ownerID), nil
			}
			return licensedomain.Validation{}, err
		}
		license = *row
	}

	// The expiry decision is always taken against the clock, never against
	// a cached status, so a cache hit cannot mask a passed expiry date.
	now := s.clock.Now()
	switch {
	case license.Status == licensedomain.StatusSuspended:
		return invalid(licensedomain.ReasonSuspended, ownerID), nil
	case license.Status == licensedomain.StatusExpired:
		return invalid(licensedomain.ReasonExpired, ownerID), nil
	case license.ExpiredAt(now):
		if err := s.lazyExpire(ctx, ownerID, now); err != nil {
			return licensedomain.Validation{}, err
		}
		return invalid(licensedomain.ReasonExpired, ownerID), nil
	}

	if !cached {
		s.cache.Set(ownerID, license, licenseCacheTTL)
	}
	snapshot := license
	return licensedomain.Validation{Valid: true, License: &snapshot}, nil
}

func (s *Service) Renew(ctx context.Context, ownerID snowflake.ID, req licensedomain.RenewRequest) (*licensedomain.License, error) {
	if ownerID == 0 {
		return nil, licensedomain.ErrInvalidOwner
	}
	quota, ok := licensedomain.QuotaForPlan(req.Plan)
	if !ok {
		return nil, licensedomain.ErrInvalidPlan
	}
	months := req.Months
	if months == 0 {
		months = defaultRenewTerm
	}
	if months < 0 {
		return nil, licensedomain.ErrInvalidDuration
	}

	now := s.clock.Now()
	updates := map[string]any{
		"plan":          req.Plan,
		"status":        licensedomain.StatusActive,
		"start_date":    now,
		"expiry_date":   now.AddDate(0, months, 0),
		"max_admins":    quota.MaxAdmins,
		"max_staff":     quota.MaxStaff,
		"max_customers": quota.MaxCustomers,
		"features":      licensedomain.EncodeFeatures(quota.Features),
		"updated_at":    now,
	}
	if req.AutoRenew != nil {
		updates["auto_renew"] = *req.AutoRenew
	}

	result := s.db.WithContext(ctx).
		Model(&licensedomain.License{}).
		Where("owner_id = ?", ownerID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, licensedomain.ErrLicenseNotFound
	}

	s.cache.Delete(ownerID)
	s.log.Info("license renewed",
		zap.String("owner_id", ownerID.String()),
		zap.String("plan", string(req.Plan)),
		zap.Int("months", months),
	)

	if s.outbox != nil {
		err := s.outbox.Publish(ctx, events.Event{
			OwnerID: ownerID,
			Type:    events.EventLicenseRenewed,
			Payload: map[string]any{
				"plan":        string(req.Plan),
				"months":      months,
				"expiry_date": updates["expiry_date"],
			},
		})
		if err != nil {
			s.log.Warn("renewal event publish failed", zap.Error(err))
		}
	}
	if s.auditSvc != nil {
		s.auditSvc.Record(ctx, auditdomain.Entry{
			OwnerID:    ownerID,
			ActorType:  auditdomain.ActorTypeOwner,
			Action:     "license.renew",
			TargetType: "license",
			Metadata: map[string]any{
				"plan":   string(req.Plan),
				"months": months,
			},
		})
	}
	return s.GetByOwner(ctx, ownerID)
}

func (s *Service) GetByOwner(ctx context.Context, ownerID snowflake.ID) (*licensedomain.License, error) {
	license, err := s.load(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, licensedomain.ErrLicenseNotFound
		}
		return nil, err
	}
	return license, nil
}

func (s *Service) load(ctx context.Context, ownerID snowflake.ID) (*licensedomain.License, error) {
	var license licensedomain.License
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&license).Error
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// lazyExpire persists the expired status as a conditional update. Concurrent
// validators racing on the same license converge on expired; the write is a
// no-op once the status has flipped.
func (s *Service) lazyExpire(ctx context.Context, ownerID snowflake.ID, now time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&licensedomain.License{}).
		Where("owner_id = ? AND status <> ?", ownerID, licensedomain.StatusExpired).
		Updates(map[string]any{
			"status":     licensedomain.StatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	s.cache.Delete(ownerID)

	// Only the validator whose update flipped the status emits the event;
	// racing validators see zero rows affected.
	if result.RowsAffected > 0 && s.outbox != nil {
		err := s.outbox.Publish(ctx, events.Event{
			OwnerID:   ownerID,
			Type:      events.EventLicenseExpired,
			Payload:   map[string]any{"expired_at": now},
			DedupeKey: fmt.Sprintf("license_expired:%s:%d", ownerID, now.Unix()),
		})
		if err != nil {
			s.log.Warn("expiry event publish failed", zap.Error(err))
		}
	}
	return nil
}

func invalid(reason licensedomain.Reason, ownerID snowflake.ID) licensedomain.Validation {
	return licensedomain.Validation{
		Valid:     false,
		Reason:    reason,
		RenewHint: fmt.Sprintf("%s?owner=%s", renewHintBase, ownerID),
	}
}
