package service

import (
	"context"
	"errors"
	"strings"

	auditdomain "github.com/aramabarzani/creditbook/internal/audit/domain"
	"github.com/aramabarzani/creditbook/internal/clock"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	memberdomain "github.com/aramabarzani/creditbook/internal/member/domain"
	ownerdomain "github.com/aramabarzani/creditbook/internal/owner/domain"
	quotadomain "github.com/aramabarzani/creditbook/internal/quota/domain"
	"github.com/aramabarzani/creditbook/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	LicenseSvc licensedomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	licenseSvc licensedomain.Service
	auditSvc   auditdomain.Service
}

func NewService(p Params) memberdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("member.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		licenseSvc: p.LicenseSvc,
		auditSvc:   p.AuditSvc,
	}
}

func resourceForRole(role memberdomain.Role) quotadomain.ResourceKind {
	if role == memberdomain.RoleAdmin {
		return quotadomain.ResourceAdmins
	}
	return quotadomain.ResourceStaff
}

// Create inserts a roster member after recounting active rows of the same
// role inside the insert transaction. The owner row is locked so concurrent
// creations for one owner serialize.
func (s *Service) Create(ctx context.Context, ownerID snowflake.ID, req memberdomain.CreateMemberRequest) (*memberdomain.Member, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, memberdomain.ErrInvalidName
	}
	if !req.Role.Valid() {
		return nil, memberdomain.ErrInvalidRole
	}

	validation, err := s.licenseSvc.Validate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, validation.Err()
	}
	kind := resourceForRole(req.Role)
	limit, err := quotadomain.LimitFor(validation.License, kind)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	member := memberdomain.Member{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		Name:      name,
		Role:      req.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner ownerdomain.Owner
		err := db.LockForUpdate(tx).
			Where("id = ?", ownerID).
			Take(&owner).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ownerdomain.ErrOwnerNotFound
			}
			return err
		}

		var count int64
		err = tx.Model(&memberdomain.Member{}).
			Where("owner_id = ? AND role = ? AND is_active = ?", ownerID, req.Role, true).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count >= int64(limit) {
			return &quotadomain.LimitError{Kind: kind, Limit: limit}
		}

		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(ctx, auditdomain.Entry{
			OwnerID:    ownerID,
			ActorType:  auditdomain.ActorTypeOwner,
			Action:     "member.create",
			TargetType: "member",
			TargetID:   member.ID.String(),
			Metadata: map[string]any{
				"name": member.Name,
				"role": string(member.Role),
			},
		})
	}
	return &member, nil
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID, role memberdomain.Role) ([]memberdomain.Member, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if role != "" {
		if !role.Valid() {
			return nil, memberdomain.ErrInvalidRole
		}
		query = query.Where("role = ?", role)
	}

	var members []memberdomain.Member
	err := query.Order("created_at ASC, id ASC").Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// Deactivate retires a member. The row stays for history; only active rows
// count against the plan quota.
func (s *Service) Deactivate(ctx context.Context, ownerID, memberID snowflake.ID) (*memberdomain.Member, error) {
	var member memberdomain.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND owner_id = ?", memberID, ownerID).
			Take(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return memberdomain.ErrMemberNotFound
			}
			return err
		}
		if !member.IsActive {
			return nil
		}

		now := s.clock.Now()
		err = tx.Model(&memberdomain.Member{}).
			Where("id = ? AND owner_id = ?", memberID, ownerID).
			Updates(map[string]any{
				"is_active":  false,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}
		member.IsActive = false
		member.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(ctx, auditdomain.Entry{
			OwnerID:    ownerID,
			ActorType:  auditdomain.ActorTypeOwner,
			Action:     "member.deactivate",
			TargetType: "member",
			TargetID:   memberID.String(),
		})
	}
	return &member, nil
}
