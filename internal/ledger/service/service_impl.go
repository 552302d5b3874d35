package service

import (
	"context"
	"errors"
	"time"

	auditdomain "github.com/aramabarzani/creditbook/internal/audit/domain"
	"github.com/aramabarzani/creditbook/internal/clock"
	customerdomain "github.com/aramabarzani/creditbook/internal/customer/domain"
	"github.com/aramabarzani/creditbook/internal/events"
	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	"github.com/aramabarzani/creditbook/pkg/db"
	"github.com/aramabarzani/creditbook/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		licenseSvc: p.LicenseSvc,
		auditSvc:   p.AuditSvc,
		outbox:     p.Outbox,
	}
}

// Record appends a debt or payment and applies its balance effect. The
// customer row is locked for the whole unit of work; either the transaction
// row and the balance update both commit, or neither does.
func (s *Service) Record(ctx context.Context, ownerID snowflake.ID, req ledgerdomain.RecordRequest) (*ledgerdomain.RecordResponse, error) {
	if req.Type != ledgerdomain.TypeDebt && req.Type != ledgerdomain.TypePayment {
		return nil, ledgerdomain.ErrInvalidType
	}
	if req.Amount <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	status := req.Status
	if status == "" {
		status = ledgerdomain.StatusPending
	}
	if status != ledgerdomain.StatusPending && status != ledgerdomain.StatusCompleted {
		return nil, ledgerdomain.ErrInvalidStatus
	}

	validation, err := s.licenseSvc.Validate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, validation.Err()
	}

	now := s.clock.Now()
	var (
		txn      ledgerdomain.Transaction
		balances ledgerdomain.Balances
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer customerdomain.Customer
		err := db.LockForUpdate(tx).
			Where("id = ? AND owner_id = ?", req.CustomerID, ownerID).
			Take(&customer).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledgerdomain.ErrCustomerNotFound
			}
			return err
		}

		// Blacklisting blocks new debt only. Payments stay accepted so a
		// blacklisted customer can still settle what they owe.
		if req.Type == ledgerdomain.TypeDebt && customer.IsBlacklisted {
			return ledgerdomain.ErrCustomerBlacklisted
		}

		if req.Type == ledgerdomain.TypeDebt {
			projected := customer.CurrentDebt + req.Amount
			if projected > customer.CreditLimit {
				return &ledgerdomain.CreditLimitError{AvailableCredit: customer.AvailableCredit()}
			}
		}

		receiptNo, err := s.nextReceiptNo(ctx, tx, ownerID)
		if err != nil {
			return err
		}

		txn = ledgerdomain.Transaction{
			ID:         s.genID.Generate(),
			OwnerID:    ownerID,
			CustomerID: customer.ID,
			Type:       req.Type,
			Amount:     req.Amount,
			Status:     status,
			ReceiptNo:  receiptNo,
			Note:       req.Note,
			Metadata:   datatypes.JSONMap{},
			DueDate:    req.DueDate,
			CreatedAt:  now,
		}
		for key, value := range req.Metadata {
			txn.Metadata[key] = value
		}
		if req.Type == ledgerdomain.TypePayment && status == ledgerdomain.StatusCompleted {
			paid := now
			txn.PaidDate = &paid
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		currentDebt := customer.CurrentDebt
		totalPaid := customer.TotalPaid
		switch req.Type {
		case ledgerdomain.TypeDebt:
			currentDebt += req.Amount
		case ledgerdomain.TypePayment:
			currentDebt -= req.Amount
			totalPaid += req.Amount
		}
		// Over-payment is capped at zero rather than carried as credit.
		if currentDebt < 0 {
			currentDebt = 0
		}

		err = tx.Model(&customerdomain.Customer{}).
			Where("id = ? AND owner_id = ?", customer.ID, ownerID).
			Updates(map[string]any{
				"current_debt": currentDebt,
				"total_paid":   totalPaid,
				"updated_at":   now,
			}).Error
		if err != nil {
			return err
		}

		available := customer.CreditLimit - currentDebt
		if available < 0 {
			available = 0
		}
		balances = ledgerdomain.Balances{
			CurrentDebt:     currentDebt,
			TotalPaid:       totalPaid,
			AvailableCredit: available,
		}

		if s.outbox != nil {
			return s.outbox.PublishTx(ctx, tx, events.Event{
				OwnerID: ownerID,
				Type:    events.EventTransactionRecorded,
				Payload: events.TransactionPayload{
					TransactionID: txn.ID.String(),
					CustomerID:    customer.ID.String(),
					Type:          string(req.Type),
					Amount:        req.Amount,
					ReceiptNo:     receiptNo,
				}.ToMap(),
				DedupeKey: "txn:" + txn.ID.String(),
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
			Action:     "transaction.record",
			TargetType: "transaction",
			TargetID:   txn.ID.String(),
			Metadata: map[string]any{
				"type":       string(txn.Type),
				"amount":     txn.Amount,
				"receipt_no": txn.ReceiptNo,
			},
		})
	}
	return &ledgerdomain.RecordResponse{Transaction: txn, Balances: balances}, nil
}

// nextReceiptNo bumps the per-owner sequence under the transaction's locks.
// The row is created on first use; the conditional insert keeps concurrent
// first writers convergent.
func (s *Service) nextReceiptNo(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID) (int64, error) {
	result := tx.WithContext(ctx).Exec(
		`UPDATE receipt_sequences SET last_value = last_value + 1 WHERE owner_id = ?`,
		ownerID,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		err := tx.WithContext(ctx).Exec(
			`INSERT INTO receipt_sequences (owner_id, last_value) VALUES (?, 0)
			 ON CONFLICT (owner_id) DO NOTHING`,
			ownerID,
		).Error
		if err != nil {
			return 0, err
		}
		err = tx.WithContext(ctx).Exec(
			`UPDATE receipt_sequences SET last_value = last_value + 1 WHERE owner_id = ?`,
			ownerID,
		).Error
		if err != nil {
			return 0, err
		}
	}

	var lastValue int64
	err := tx.WithContext(ctx).Raw(
		`SELECT last_value FROM receipt_sequences WHERE owner_id = ?`,
		ownerID,
	).Scan(&lastValue).Error
	if err != nil {
		return 0, err
	}
	return lastValue, nil
}

func (s *Service) Settle(ctx context.Context, ownerID, transactionID snowflake.ID) (*ledgerdomain.Transaction, error) {
	validation, err := s.licenseSvc.Validate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, validation.Err()
	}

	now := s.clock.Now()
	var txn ledgerdomain.Transaction

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := db.LockForUpdate(tx).
			Where("id = ? AND owner_id = ?", transactionID, ownerID).
			Take(&txn).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledgerdomain.ErrTransactionNotFound
			}
			return err
		}
		switch txn.Status {
		case ledgerdomain.StatusCompleted:
			return ledgerdomain.ErrAlreadySettled
		case ledgerdomain.StatusCancelled:
			return ledgerdomain.ErrInvalidStatus
		}

		err = tx.Model(&ledgerdomain.Transaction{}).
			Where("id = ? AND owner_id = ?", transactionID, ownerID).
			Updates(map[string]any{
				"status":    ledgerdomain.StatusCompleted,
				"paid_date": now,
			}).Error
		if err != nil {
			return err
		}
		txn.Status = ledgerdomain.StatusCompleted
		txn.PaidDate = &now

		if s.outbox != nil {
			return s.outbox.PublishTx(ctx, tx, events.Event{
				OwnerID:   ownerID,
				Type:      events.EventTransactionSettled,
				Payload:   map[string]any{"transaction_id": txn.ID.String()},
				DedupeKey: "settle:" + txn.ID.String(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID, req ledgerdomain.ListRequest) (ledgerdomain.ListResponse, error) {
	pageSize := pagination.Pagination{PageSize: req.PageSize}.Limit()

	query := s.db.WithContext(ctx).
		Where("owner_id = ? AND customer_id = ?", ownerID, req.CustomerID)
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return ledgerdomain.ListResponse{}, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return ledgerdomain.ListResponse{}, pagination.ErrInvalidPageToken
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return ledgerdomain.ListResponse{}, pagination.ErrInvalidPageToken
		}
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, cursorID)
	}

	var rows []ledgerdomain.Transaction
	err := query.Order("created_at DESC, id DESC").
		Limit(pageSize + 1).
		Find(&rows).Error
	if err != nil {
		return ledgerdomain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, pageSize, func(t ledgerdomain.Transaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        t.ID.String(),
			CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(rows) > pageSize {
		rows = rows[:pageSize]
	}

	return ledgerdomain.ListResponse{
		Transactions: rows,
		PageInfo:     *pageInfo,
	}, nil
}
