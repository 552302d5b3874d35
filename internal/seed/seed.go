package seed

import (
	"context"
	"errors"
	"time"

	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	memberdomain "github.com/aramabarzani/creditbook/internal/member/domain"
	ownerdomain "github.com/aramabarzani/creditbook/internal/owner/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	defaultOwnerName  = "Demo Store"
	defaultOwnerEmail = "demo@creditbook.app"
	defaultAdminName  = "Demo Admin"

	defaultTermMonths = 12
)

// EnsureDefaultOwner seeds a demo owner with a free license and one admin
// member. Used for local development bootstrap; a second run is a no-op.
func EnsureDefaultOwner(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := ensureOwnerTx(ctx, tx, node)
		if err != nil {
			return err
		}
		if err := ensureLicenseTx(ctx, tx, node, owner.ID); err != nil {
			return err
		}
		return ensureAdminTx(ctx, tx, node, owner.ID)
	})
}

func ensureOwnerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (ownerdomain.Owner, error) {
	var owner ownerdomain.Owner
	err := tx.WithContext(ctx).Where("email = ?", defaultOwnerEmail).First(&owner).Error
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return owner, err
	}
	now := time.Now().UTC()
	owner = ownerdomain.Owner{
		ID:        node.Generate(),
		Name:      defaultOwnerName,
		Email:     defaultOwnerEmail,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&owner).Error; err != nil {
		return owner, err
	}
	return owner, nil
}

func ensureLicenseTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, ownerID snowflake.ID) error {
	var license licensedomain.License
	err := tx.WithContext(ctx).Where("owner_id = ?", ownerID).First(&license).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	quota, _ := licensedomain.QuotaForPlan(licensedomain.PlanFree)
	now := time.Now().UTC()
	license = licensedomain.License{
		ID:           node.Generate(),
		OwnerID:      ownerID,
		Plan:         licensedomain.PlanFree,
		Status:       licensedomain.StatusActive,
		StartDate:    now,
		ExpiryDate:   now.AddDate(0, defaultTermMonths, 0),
		MaxAdmins:    quota.MaxAdmins,
		MaxStaff:     quota.MaxStaff,
		MaxCustomers: quota.MaxCustomers,
		Features:     licensedomain.EncodeFeatures(quota.Features),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tx.WithContext(ctx).Create(&license).Error
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, ownerID snowflake.ID) error {
	var member memberdomain.Member
	err := tx.WithContext(ctx).
		Where("owner_id = ? AND role = ?", ownerID, memberdomain.RoleAdmin).
		First(&member).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	now := time.Now().UTC()
	member = memberdomain.Member{
		ID:        node.Generate(),
		OwnerID:   ownerID,
		Name:      defaultAdminName,
		Role:      memberdomain.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&member).Error
}
