package service

import (
	"context"
	"errors"
	"testing"
	"time"

	customerdomain "github.com/aramabarzani/creditbook/internal/customer/domain"
	"github.com/aramabarzani/creditbook/internal/events"
	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubLicenseService struct {
	validation licensedomain.Validation
}

func (s stubLicenseService) Validate(ctx context.Context, ownerID snowflake.ID) (licensedomain.Validation, error) {
	return s.validation, nil
}

func (s stubLicenseService) Renew(ctx context.Context, ownerID snowflake.ID, req licensedomain.RenewRequest) (*licensedomain.License, error) {
	return nil, licensedomain.ErrLicenseNotFound
}

func (s stubLicenseService) GetByOwner(ctx context.Context, ownerID snowflake.ID) (*licensedomain.License, error) {
	return nil, licensedomain.ErrLicenseNotFound
}

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&ledgerdomain.Transaction{},
		&ledgerdomain.ReceiptSequence{},
		&events.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newLedgerService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:         db,
		log:        zap.NewNop(),
		genID:      node,
		clock:      fixedClock{now: time.Now().UTC()},
		licenseSvc: stubLicenseService{validation: licensedomain.Validation{Valid: true, License: &licensedomain.License{}}},
		outbox:     events.NewOutbox(db, node),
	}
}

func insertCustomer(t *testing.T, db *gorm.DB, ownerID, customerID snowflake.ID, creditLimit int64, blacklisted bool) {
	t.Helper()
	customer := customerdomain.Customer{
		ID:            customerID,
		OwnerID:       ownerID,
		Name:          "Test Customer",
		CreditLimit:   creditLimit,
		IsBlacklisted: blacklisted,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("insert customer: %v", err)
	}
}

func loadCustomer(t *testing.T, db *gorm.DB, ownerID, customerID snowflake.ID) customerdomain.Customer {
	t.Helper()
	var customer customerdomain.Customer
	if err := db.Where("id = ? AND owner_id = ?", customerID, ownerID).First(&customer).Error; err != nil {
		t.Fatalf("load customer: %v", err)
	}
	return customer
}

func TestRecordDebtAndPayment(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 100000, false)
	ctx := context.Background()

	resp, err := svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100,
		Type:       ledgerdomain.TypeDebt,
		Amount:     80000,
	})
	if err != nil {
		t.Fatalf("record debt: %v", err)
	}
	if resp.Balances.CurrentDebt != 80000 || resp.Balances.AvailableCredit != 20000 {
		t.Fatalf("unexpected balances after debt: %+v", resp.Balances)
	}

	// Second debt would exceed the credit limit; no state may change.
	_, err = svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100,
		Type:       ledgerdomain.TypeDebt,
		Amount:     30000,
	})
	if !errors.Is(err, ledgerdomain.ErrCreditLimitExceeded) {
		t.Fatalf("expected credit_limit_exceeded, got %v", err)
	}
	var limitErr *ledgerdomain.CreditLimitError
	if !errors.As(err, &limitErr) || limitErr.AvailableCredit != 20000 {
		t.Fatalf("expected available credit 20000 in error, got %+v", limitErr)
	}
	customer := loadCustomer(t, db, 1, 100)
	if customer.CurrentDebt != 80000 {
		t.Fatalf("expected debt unchanged at 80000, got %d", customer.CurrentDebt)
	}

	resp, err = svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100,
		Type:       ledgerdomain.TypePayment,
		Amount:     50000,
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if resp.Balances.CurrentDebt != 30000 || resp.Balances.TotalPaid != 50000 {
		t.Fatalf("unexpected balances after payment: %+v", resp.Balances)
	}
}

func TestRecordRejectsInvalidAmount(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 100000, false)

	for _, amount := range []int64{0, -500} {
		_, err := svc.Record(context.Background(), 1, ledgerdomain.RecordRequest{
			CustomerID: 100,
			Type:       ledgerdomain.TypeDebt,
			Amount:     amount,
		})
		if !errors.Is(err, ledgerdomain.ErrInvalidAmount) {
			t.Fatalf("amount=%d: expected invalid_amount, got %v", amount, err)
		}
	}
}

func TestBlacklistBlocksDebtNotPayment(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 100000, true)
	ctx := context.Background()

	_, err := svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100,
		Type:       ledgerdomain.TypeDebt,
		Amount:     1,
	})
	if !errors.Is(err, ledgerdomain.ErrCustomerBlacklisted) {
		t.Fatalf("expected customer_blacklisted, got %v", err)
	}
	customer := loadCustomer(t, db, 1, 100)
	if customer.CurrentDebt != 0 || customer.TotalPaid != 0 {
		t.Fatalf("expected balances unchanged, got %+v", customer)
	}

	// A blacklisted customer must still be able to pay down debt.
	if _, err := svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100,
		Type:       ledgerdomain.TypePayment,
		Amount:     500,
	}); err != nil {
		t.Fatalf("payment on blacklisted customer: %v", err)
	}
}

func TestRecordEnforcesTenantIsolation(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 100000, false)

	_, err := svc.Record(context.Background(), 2, ledgerdomain.RecordRequest{
		CustomerID: 100,
		Type:       ledgerdomain.TypeDebt,
		Amount:     1000,
	})
	if !errors.Is(err, ledgerdomain.ErrCustomerNotFound) {
		t.Fatalf("expected customer_not_found for foreign owner, got %v", err)
	}
}

func TestRecordRejectsInvalidLicense(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	svc.licenseSvc = stubLicenseService{validation: licensedomain.Validation{
		Valid:  false,
		Reason: licensedomain.ReasonExpired,
	}}
	insertCustomer(t, db, 1, 100, 100000, false)

	_, err := svc.Record(context.Background(), 1, ledgerdomain.RecordRequest{
		CustomerID: 100,
		Type:       ledgerdomain.TypeDebt,
		Amount:     1000,
	})
	if !errors.Is(err, licensedomain.ErrLicenseExpired) {
		t.Fatalf("expected license_expired, got %v", err)
	}
}

func TestOverPaymentClampsAtZero(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 100000, false)
	ctx := context.Background()

	if _, err := svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100, Type: ledgerdomain.TypeDebt, Amount: 10000,
	}); err != nil {
		t.Fatalf("record debt: %v", err)
	}

	resp, err := svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100, Type: ledgerdomain.TypePayment, Amount: 25000,
	})
	if err != nil {
		t.Fatalf("record over-payment: %v", err)
	}
	if resp.Balances.CurrentDebt != 0 {
		t.Fatalf("expected clamped debt 0, got %d", resp.Balances.CurrentDebt)
	}
	if resp.Balances.TotalPaid != 25000 {
		t.Fatalf("expected total paid 25000, got %d", resp.Balances.TotalPaid)
	}
}

// Concurrent writers are covered structurally rather than with goroutines:
// the sequence row is bumped under the insert transaction's row lock, and the
// unique index on (owner_id, receipt_no) rejects any duplicate that slips
// through. This test pins the sequential contract.
func TestReceiptNumbersAreUniqueAndMonotonic(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 1000000, false)
	insertCustomer(t, db, 2, 200, 1000000, false)
	ctx := context.Background()

	var lastReceipt int64
	for i := 0; i < 10; i++ {
		resp, err := svc.Record(ctx, 1, ledgerdomain.RecordRequest{
			CustomerID: 100, Type: ledgerdomain.TypeDebt, Amount: 100,
		})
		if err != nil {
			t.Fatalf("record #%d: %v", i+1, err)
		}
		if resp.Transaction.ReceiptNo <= lastReceipt {
			t.Fatalf("receipt %d not monotonic after %d", resp.Transaction.ReceiptNo, lastReceipt)
		}
		lastReceipt = resp.Transaction.ReceiptNo
	}

	// Sequences are per tenant: a second owner starts from 1.
	resp, err := svc.Record(ctx, 2, ledgerdomain.RecordRequest{
		CustomerID: 200, Type: ledgerdomain.TypeDebt, Amount: 100,
	})
	if err != nil {
		t.Fatalf("record for second owner: %v", err)
	}
	if resp.Transaction.ReceiptNo != 1 {
		t.Fatalf("expected receipt 1 for second owner, got %d", resp.Transaction.ReceiptNo)
	}
}

func TestRecordLeavesNoPartialStateOnFailure(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 100000, false)
	ctx := context.Background()

	// Fail the balance update after the transaction row insert.
	boom := errors.New("injected failure")
	err := db.Callback().Update().Before("gorm:update").Register("fail_customer_update", func(d *gorm.DB) {
		if d.Statement != nil && d.Statement.Table == "customers" {
			d.AddError(boom)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err = svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100, Type: ledgerdomain.TypeDebt, Amount: 5000,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	var txnCount int64
	if err := db.Model(&ledgerdomain.Transaction{}).Count(&txnCount).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if txnCount != 0 {
		t.Fatalf("expected no transaction rows after rollback, got %d", txnCount)
	}

	customer := loadCustomer(t, db, 1, 100)
	if customer.CurrentDebt != 0 {
		t.Fatalf("expected debt unchanged after rollback, got %d", customer.CurrentDebt)
	}

	var seqCount int64
	if err := db.Model(&ledgerdomain.ReceiptSequence{}).Count(&seqCount).Error; err != nil {
		t.Fatalf("count sequences: %v", err)
	}
	if seqCount != 0 {
		t.Fatalf("expected receipt sequence rolled back, got %d rows", seqCount)
	}
}

func TestBalanceIdentityAgainstLog(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 1000000, false)
	ctx := context.Background()

	steps := []struct {
		txnType ledgerdomain.Type
		amount  int64
	}{
		{ledgerdomain.TypeDebt, 40000},
		{ledgerdomain.TypePayment, 15000},
		{ledgerdomain.TypeDebt, 22000},
		{ledgerdomain.TypePayment, 60000},
		{ledgerdomain.TypeDebt, 9000},
	}
	for i, step := range steps {
		if _, err := svc.Record(ctx, 1, ledgerdomain.RecordRequest{
			CustomerID: 100, Type: step.txnType, Amount: step.amount,
		}); err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
	}

	var rows []ledgerdomain.Transaction
	if err := db.Where("owner_id = ? AND customer_id = ?", 1, 100).
		Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	var derived, totalPaid int64
	for _, row := range rows {
		switch row.Type {
		case ledgerdomain.TypeDebt:
			derived += row.Amount
		case ledgerdomain.TypePayment:
			derived -= row.Amount
			totalPaid += row.Amount
		}
		if derived < 0 {
			derived = 0
		}
	}

	customer := loadCustomer(t, db, 1, 100)
	if customer.CurrentDebt != derived {
		t.Fatalf("stored debt %d disagrees with log-derived %d", customer.CurrentDebt, derived)
	}
	if customer.TotalPaid != totalPaid {
		t.Fatalf("stored total paid %d disagrees with log-derived %d", customer.TotalPaid, totalPaid)
	}
}

func TestSettleMarksCompletedOnce(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 100000, false)
	ctx := context.Background()

	resp, err := svc.Record(ctx, 1, ledgerdomain.RecordRequest{
		CustomerID: 100, Type: ledgerdomain.TypeDebt, Amount: 5000,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	settled, err := svc.Settle(ctx, 1, resp.Transaction.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != ledgerdomain.StatusCompleted || settled.PaidDate == nil {
		t.Fatalf("expected completed with paid date, got %+v", settled)
	}

	if _, err := svc.Settle(ctx, 1, resp.Transaction.ID); !errors.Is(err, ledgerdomain.ErrAlreadySettled) {
		t.Fatalf("expected already_settled, got %v", err)
	}
}

func TestRecordWritesOutboxEventInSameTransaction(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc := newLedgerService(t, db)
	insertCustomer(t, db, 1, 100, 100000, false)

	if _, err := svc.Record(context.Background(), 1, ledgerdomain.RecordRequest{
		CustomerID: 100, Type: ledgerdomain.TypeDebt, Amount: 5000,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	var count int64
	if err := db.Model(&events.OutboxEvent{}).
		Where("event_type = ?", events.EventTransactionRecorded).
		Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one outbox event, got %d", count)
	}
}
