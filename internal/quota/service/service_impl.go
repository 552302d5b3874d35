package service

import (
	"context"

	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	quotadomain "github.com/aramabarzani/creditbook/internal/quota/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	LicenseSvc licensedomain.Service
}

type Service struct {
	log        *zap.Logger
	licenseSvc licensedomain.Service
}

func NewService(p Params) quotadomain.Service {
	return &Service{
		log:        p.Log.Named("quota.service"),
		licenseSvc: p.LicenseSvc,
	}
}

// Check is advisory: the authoritative count-and-compare happens again
// inside the transaction that inserts the resource row.
func (s *Service) Check(ctx context.Context, ownerID snowflake.ID, kind quotadomain.ResourceKind, currentCount int) (quotadomain.CheckResult, error) {
	if currentCount < 0 {
		return quotadomain.CheckResult{}, quotadomain.ErrInvalidCount
	}
	if !kind.Valid() {
		return quotadomain.CheckResult{}, quotadomain.ErrInvalidKind
	}

	validation, err := s.licenseSvc.Validate(ctx, ownerID)
	if err != nil {
		return quotadomain.CheckResult{}, err
	}
	if !validation.Valid {
		return quotadomain.CheckResult{Allowed: false, Limit: 0}, nil
	}

	limit, err := quotadomain.LimitFor(validation.License, kind)
	if err != nil {
		return quotadomain.CheckResult{}, err
	}
	return quotadomain.CheckResult{
		Allowed: currentCount < limit,
		Limit:   limit,
	}, nil
}
