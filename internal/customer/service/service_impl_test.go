package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	customerdomain "github.com/aramabarzani/creditbook/internal/customer/domain"
	"github.com/aramabarzani/creditbook/internal/events"
	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	ownerdomain "github.com/aramabarzani/creditbook/internal/owner/domain"
	quotadomain "github.com/aramabarzani/creditbook/internal/quota/domain"
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

func setupCustomerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&ownerdomain.Owner{},
		&customerdomain.Customer{},
		&ledgerdomain.Transaction{},
		&events.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newCustomerService(t *testing.T, conn *gorm.DB, maxCustomers int) *Service {
	t.Helper()
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:    conn,
		log:   zap.NewNop(),
		genID: node,
		clock: fixedClock{now: time.Now().UTC()},
		licenseSvc: stubLicenseService{validation: licensedomain.Validation{
			Valid:   true,
			License: &licensedomain.License{MaxCustomers: maxCustomers},
		}},
		outbox: events.NewOutbox(conn, node),
	}
}

func insertOwner(t *testing.T, conn *gorm.DB, ownerID snowflake.ID) {
	t.Helper()
	owner := ownerdomain.Owner{
		ID:        ownerID,
		Name:      fmt.Sprintf("Owner %d", ownerID),
		Email:     fmt.Sprintf("owner%d@example.com", ownerID),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := conn.Create(&owner).Error; err != nil {
		t.Fatalf("insert owner: %v", err)
	}
}

func TestCreateEnforcesCustomerQuotaExactly(t *testing.T) {
	conn := setupCustomerTestDB(t)
	svc := newCustomerService(t, conn, 3)
	insertOwner(t, conn, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{
			Name:        fmt.Sprintf("Customer %d", i+1),
			CreditLimit: 100000,
		})
		if err != nil {
			t.Fatalf("create #%d under quota: %v", i+1, err)
		}
	}

	_, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{
		Name:        "One Too Many",
		CreditLimit: 100000,
	})
	if !errors.Is(err, quotadomain.ErrLimitReached) {
		t.Fatalf("expected limit_reached at quota, got %v", err)
	}
	var limitErr *quotadomain.LimitError
	if !errors.As(err, &limitErr) || limitErr.Limit != 3 || limitErr.Kind != quotadomain.ResourceCustomers {
		t.Fatalf("unexpected limit error payload: %+v", limitErr)
	}
}

func TestQuotaCountsPerOwner(t *testing.T) {
	conn := setupCustomerTestDB(t)
	svc := newCustomerService(t, conn, 1)
	insertOwner(t, conn, 1)
	insertOwner(t, conn, 2)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{Name: "A"}); err != nil {
		t.Fatalf("create for owner 1: %v", err)
	}
	// Owner 2 has its own count; owner 1 being full does not block it.
	if _, err := svc.Create(ctx, 2, customerdomain.CreateCustomerRequest{Name: "B"}); err != nil {
		t.Fatalf("create for owner 2: %v", err)
	}
	if _, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{Name: "C"}); !errors.Is(err, quotadomain.ErrLimitReached) {
		t.Fatalf("expected limit_reached for owner 1, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	conn := setupCustomerTestDB(t)
	svc := newCustomerService(t, conn, 10)
	insertOwner(t, conn, 1)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{Name: "   "}); !errors.Is(err, customerdomain.ErrInvalidName) {
		t.Fatalf("expected invalid_name, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{Name: "X", CreditLimit: -1}); !errors.Is(err, customerdomain.ErrInvalidCreditLimit) {
		t.Fatalf("expected invalid_credit_limit, got %v", err)
	}
}

func TestGetByIDScopedToOwner(t *testing.T) {
	conn := setupCustomerTestDB(t)
	svc := newCustomerService(t, conn, 10)
	insertOwner(t, conn, 1)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{Name: "Scoped"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetByID(ctx, 1, created.ID); err != nil {
		t.Fatalf("get as owner: %v", err)
	}
	if _, err := svc.GetByID(ctx, 2, created.ID); !errors.Is(err, customerdomain.ErrCustomerNotFound) {
		t.Fatalf("expected customer_not_found for foreign owner, got %v", err)
	}
}

func TestSetBlacklistTogglesAndEmitsEvent(t *testing.T) {
	conn := setupCustomerTestDB(t)
	svc := newCustomerService(t, conn, 10)
	insertOwner(t, conn, 1)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{Name: "Toggle"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.SetBlacklist(ctx, 1, created.ID, true)
	if err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if !updated.IsBlacklisted {
		t.Fatal("expected customer blacklisted")
	}

	var count int64
	if err := conn.Model(&events.OutboxEvent{}).
		Where("event_type = ?", events.EventCustomerBlacklisted).
		Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one blacklist event, got %d", count)
	}

	updated, err = svc.SetBlacklist(ctx, 1, created.ID, false)
	if err != nil {
		t.Fatalf("unblacklist: %v", err)
	}
	if updated.IsBlacklisted {
		t.Fatal("expected customer cleared")
	}
}

func TestListPaginatesWithCursor(t *testing.T) {
	conn := setupCustomerTestDB(t)
	svc := newCustomerService(t, conn, 100)
	insertOwner(t, conn, 1)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		customer := customerdomain.Customer{
			ID:        svc.genID.Generate(),
			OwnerID:   1,
			Name:      fmt.Sprintf("Customer %d", i+1),
			IsActive:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := conn.Create(&customer).Error; err != nil {
			t.Fatalf("insert customer: %v", err)
		}
	}

	first, err := svc.List(ctx, 1, customerdomain.ListCustomerRequest{PageSize: 3})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Customers) != 3 || !first.PageInfo.HasMore {
		t.Fatalf("expected 3 rows with more, got %d (hasMore=%v)", len(first.Customers), first.PageInfo.HasMore)
	}

	second, err := svc.List(ctx, 1, customerdomain.ListCustomerRequest{
		PageSize:  3,
		PageToken: first.PageInfo.NextPageToken,
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Customers) != 2 || second.PageInfo.HasMore {
		t.Fatalf("expected final 2 rows, got %d (hasMore=%v)", len(second.Customers), second.PageInfo.HasMore)
	}

	seen := map[snowflake.ID]bool{}
	for _, c := range append(first.Customers, second.Customers...) {
		if seen[c.ID] {
			t.Fatalf("customer %s appeared on both pages", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestLedgerAgreesWithStoredBalances(t *testing.T) {
	conn := setupCustomerTestDB(t)
	svc := newCustomerService(t, conn, 10)
	insertOwner(t, conn, 1)
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, customerdomain.CreateCustomerRequest{
		Name:        "Ledger",
		CreditLimit: 100000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UTC()
	rows := []ledgerdomain.Transaction{
		{ID: svc.genID.Generate(), OwnerID: 1, CustomerID: created.ID, Type: ledgerdomain.TypeDebt, Amount: 40000, Status: ledgerdomain.StatusPending, ReceiptNo: 1, CreatedAt: now},
		{ID: svc.genID.Generate(), OwnerID: 1, CustomerID: created.ID, Type: ledgerdomain.TypePayment, Amount: 15000, Status: ledgerdomain.StatusCompleted, ReceiptNo: 2, CreatedAt: now.Add(time.Second)},
		{ID: svc.genID.Generate(), OwnerID: 1, CustomerID: created.ID, Type: ledgerdomain.TypeDebt, Amount: 9000, Status: ledgerdomain.StatusCancelled, ReceiptNo: 3, CreatedAt: now.Add(2 * time.Second)},
	}
	for i := range rows {
		if err := conn.Create(&rows[i]).Error; err != nil {
			t.Fatalf("insert transaction: %v", err)
		}
	}

	ledger, err := svc.Ledger(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if ledger.TotalDebt != 40000 || ledger.TotalPaid != 15000 {
		t.Fatalf("unexpected totals: %+v", ledger)
	}
	// Cancelled rows are excluded from the aggregate.
	if len(ledger.Debts) != 1 || len(ledger.Payments) != 1 {
		t.Fatalf("unexpected row split: %d debts, %d payments", len(ledger.Debts), len(ledger.Payments))
	}
	if ledger.CurrentDebt != 25000 || ledger.AvailableCredit != 75000 {
		t.Fatalf("unexpected derived balances: %+v", ledger)
	}
}
