package service

import (
	"context"
	"errors"
	"strings"
	"time"

	auditdomain "github.com/aramabarzani/creditbook/internal/audit/domain"
	"github.com/aramabarzani/creditbook/internal/clock"
	customerdomain "github.com/aramabarzani/creditbook/internal/customer/domain"
	"github.com/aramabarzani/creditbook/internal/events"
	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	ownerdomain "github.com/aramabarzani/creditbook/internal/owner/domain"
	quotadomain "github.com/aramabarzani/creditbook/internal/quota/domain"
	"github.com/aramabarzani/creditbook/pkg/db"
	"github.com/aramabarzani/creditbook/pkg/db/pagination"
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
	Outbox     *events.Outbox      `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	licenseSvc licensedomain.Service
	auditSvc   auditdomain.Service
	outbox     *events.Outbox
}

func NewService(p Params) customerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("customer.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		licenseSvc: p.LicenseSvc,
		auditSvc:   p.AuditSvc,
		outbox:     p.Outbox,
	}
}

// Create inserts a customer after recounting live rows inside the same
// transaction as the insert. The owner row is locked for the duration, so
// two concurrent creations cannot both observe count = limit-1.
func (s *Service) Create(ctx context.Context, ownerID snowflake.ID, req customerdomain.CreateCustomerRequest) (*customerdomain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, customerdomain.ErrInvalidName
	}
	if req.CreditLimit < 0 {
		return nil, customerdomain.ErrInvalidCreditLimit
	}

	validation, err := s.licenseSvc.Validate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, validation.Err()
	}
	limit, err := quotadomain.LimitFor(validation.License, quotadomain.ResourceCustomers)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	customer := customerdomain.Customer{
		ID:          s.genID.Generate(),
		OwnerID:     ownerID,
		Name:        name,
		Phone:       strings.TrimSpace(req.Phone),
		CreditLimit: req.CreditLimit,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
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
		err = tx.Model(&customerdomain.Customer{}).
			Where("owner_id = ? AND is_active = ?", ownerID, true).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count >= int64(limit) {
			return &quotadomain.LimitError{Kind: quotadomain.ResourceCustomers, Limit: limit}
		}

		return tx.Create(&customer).Error
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(ctx, auditdomain.Entry{
			OwnerID:    ownerID,
			ActorType:  auditdomain.ActorTypeOwner,
			Action:     "customer.create",
			TargetType: "customer",
			TargetID:   customer.ID.String(),
			Metadata: map[string]any{
				"name":         customer.Name,
				"credit_limit": customer.CreditLimit,
			},
		})
	}
	return &customer, nil
}

func (s *Service) GetByID(ctx context.Context, ownerID, customerID snowflake.ID) (*customerdomain.Customer, error) {
	return s.load(ctx, s.db, ownerID, customerID)
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID, req customerdomain.ListCustomerRequest) (customerdomain.ListCustomerResponse, error) {
	pageSize := pagination.Pagination{PageSize: req.PageSize}.Limit()

	query := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID)
	if name := strings.TrimSpace(req.Name); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return customerdomain.ListCustomerResponse{}, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return customerdomain.ListCustomerResponse{}, pagination.ErrInvalidPageToken
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return customerdomain.ListCustomerResponse{}, pagination.ErrInvalidPageToken
		}
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, cursorID)
	}

	var customers []customerdomain.Customer
	err := query.Order("created_at DESC, id DESC").
		Limit(pageSize + 1).
		Find(&customers).Error
	if err != nil {
		return customerdomain.ListCustomerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(customers, pageSize, func(c customerdomain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        c.ID.String(),
			CreatedAt: c.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(customers) > pageSize {
		customers = customers[:pageSize]
	}

	return customerdomain.ListCustomerResponse{
		Customers: customers,
		PageInfo:  *pageInfo,
	}, nil
}

func (s *Service) SetBlacklist(ctx context.Context, ownerID, customerID snowflake.ID, blacklisted bool) (*customerdomain.Customer, error) {
	validation, err := s.licenseSvc.Validate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, validation.Err()
	}

	var customer *customerdomain.Customer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err = s.load(ctx, tx, ownerID, customerID)
		if err != nil {
			return err
		}
		if customer.IsBlacklisted == blacklisted {
			return nil
		}

		now := s.clock.Now()
		err = tx.Model(&customerdomain.Customer{}).
			Where("id = ? AND owner_id = ?", customerID, ownerID).
			Updates(map[string]any{
				"is_blacklisted": blacklisted,
				"updated_at":     now,
			}).Error
		if err != nil {
			return err
		}
		customer.IsBlacklisted = blacklisted
		customer.UpdatedAt = now

		if s.outbox != nil && blacklisted {
			return s.outbox.PublishTx(ctx, tx, events.Event{
				OwnerID: ownerID,
				Type:    events.EventCustomerBlacklisted,
				Payload: map[string]any{"customer_id": customerID.String()},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		s.auditSvc.Record(ctx, auditdomain.Entry{
			OwnerID:    ownerID,
			ActorType:  auditdomain.ActorTypeOwner,
			Action:     "customer.blacklist",
			TargetType: "customer",
			TargetID:   customerID.String(),
			Metadata:   map[string]any{"blacklisted": blacklisted},
		})
	}
	return customer, nil
}

// Ledger aggregates the transaction log. The derived running debt applies
// the same non-negative clamp as the write path, so the result must agree
// with the stored balances.
func (s *Service) Ledger(ctx context.Context, ownerID, customerID snowflake.ID) (*customerdomain.Ledger, error) {
	customer, err := s.load(ctx, s.db, ownerID, customerID)
	if err != nil {
		return nil, err
	}

	var rows []ledgerdomain.Transaction
	err = s.db.WithContext(ctx).
		Where("owner_id = ? AND customer_id = ?", ownerID, customerID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	ledger := customerdomain.Ledger{
		Debts:    make([]ledgerdomain.Transaction, 0, len(rows)),
		Payments: make([]ledgerdomain.Transaction, 0),
	}
	var runningDebt int64
	for _, row := range rows {
		if row.Status == ledgerdomain.StatusCancelled {
			continue
		}
		switch row.Type {
		case ledgerdomain.TypeDebt:
			ledger.Debts = append(ledger.Debts, row)
			ledger.TotalDebt += row.Amount
			runningDebt += row.Amount
		case ledgerdomain.TypePayment:
			ledger.Payments = append(ledger.Payments, row)
			ledger.TotalPaid += row.Amount
			runningDebt -= row.Amount
			if runningDebt < 0 {
				runningDebt = 0
			}
		}
	}
	ledger.CurrentDebt = runningDebt

	available := customer.CreditLimit - runningDebt
	if available < 0 {
		available = 0
	}
	ledger.AvailableCredit = available
	return &ledger, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, ownerID, customerID snowflake.ID) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", customerID, ownerID).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerdomain.ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}
