package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aramabarzani/creditbook/internal/clock"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	ownerdomain "github.com/aramabarzani/creditbook/internal/owner/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Free licenses start with a one year validity window.
const freeTermMonths = 12

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) ownerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("owner.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Register(ctx context.Context, req ownerdomain.RegisterRequest) (*ownerdomain.RegisterResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ownerdomain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ownerdomain.ErrInvalidEmail
	}

	now := s.clock.Now()
	owner := ownerdomain.Owner{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	quota, _ := licensedomain.QuotaForPlan(licensedomain.PlanFree)
	license := licensedomain.License{
		ID:           s.genID.Generate(),
		OwnerID:      owner.ID,
		Plan:         licensedomain.PlanFree,
		Status:       licensedomain.StatusActive,
		StartDate:    now,
		ExpiryDate:   now.AddDate(0, freeTermMonths, 0),
		MaxAdmins:    quota.MaxAdmins,
		MaxStaff:     quota.MaxStaff,
		MaxCustomers: quota.MaxCustomers,
		Features:     licensedomain.EncodeFeatures(quota.Features),
		AutoRenew:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ownerdomain.Owner{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ownerdomain.ErrEmailTaken
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		return tx.Create(&license).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("owner registered",
		zap.String("owner_id", owner.ID.String()),
		zap.String("plan", string(license.Plan)),
	)
	return &ownerdomain.RegisterResponse{Owner: owner, License: license}, nil
}

func (s *Service) GetByID(ctx context.Context, ownerID snowflake.ID) (*ownerdomain.Owner, error) {
	var owner ownerdomain.Owner
	err := s.db.WithContext(ctx).Where("id = ?", ownerID).First(&owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ownerdomain.ErrOwnerNotFound
		}
		return nil, err
	}
	return &owner, nil
}
