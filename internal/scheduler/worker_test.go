package scheduler

import (
	"context"
	"testing"
	"time"

	customerdomain "github.com/aramabarzani/creditbook/internal/customer/domain"
	"github.com/aramabarzani/creditbook/internal/events"
	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func setupSweeperTest(t *testing.T, now time.Time) (*gorm.DB, *Worker) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&customerdomain.Customer{},
		&ledgerdomain.Transaction{},
		&events.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	worker := &Worker{
		db:     conn,
		log:    zap.NewNop(),
		clock:  fixedClock{now: now},
		outbox: events.NewOutbox(conn, node),
		cfg:    DefaultConfig(),
	}
	return conn, worker
}

func insertTxn(t *testing.T, conn *gorm.DB, id snowflake.ID, txnType ledgerdomain.Type, status ledgerdomain.Status, dueDate *time.Time) {
	t.Helper()
	txn := ledgerdomain.Transaction{
		ID:         id,
		OwnerID:    1,
		CustomerID: 100,
		Type:       txnType,
		Amount:     1000,
		Status:     status,
		ReceiptNo:  int64(id),
		DueDate:    dueDate,
		CreatedAt:  time.Now().UTC(),
	}
	if err := conn.Create(&txn).Error; err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
}

func TestSweepMarksMaturedPendingDebts(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	conn, worker := setupSweeperTest(t, now)

	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	insertTxn(t, conn, 1, ledgerdomain.TypeDebt, ledgerdomain.StatusPending, &past)
	insertTxn(t, conn, 2, ledgerdomain.TypeDebt, ledgerdomain.StatusPending, &future)
	insertTxn(t, conn, 3, ledgerdomain.TypeDebt, ledgerdomain.StatusCompleted, &past)
	insertTxn(t, conn, 4, ledgerdomain.TypePayment, ledgerdomain.StatusPending, nil)

	processed, err := worker.SweepOverdue(context.Background(), 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 row swept, got %d", processed)
	}

	var swept ledgerdomain.Transaction
	if err := conn.First(&swept, "id = ?", 1).Error; err != nil {
		t.Fatalf("load swept row: %v", err)
	}
	if swept.Status != ledgerdomain.StatusOverdue {
		t.Fatalf("expected overdue, got %s", swept.Status)
	}

	// Untouched rows keep their status.
	var untouched ledgerdomain.Transaction
	if err := conn.First(&untouched, "id = ?", 2).Error; err != nil {
		t.Fatalf("load future row: %v", err)
	}
	if untouched.Status != ledgerdomain.StatusPending {
		t.Fatalf("expected future debt still pending, got %s", untouched.Status)
	}

	var eventCount int64
	if err := conn.Model(&events.OutboxEvent{}).
		Where("event_type = ?", events.EventTransactionOverdue).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 overdue event, got %d", eventCount)
	}
}

func TestStartOutlivesStartupContext(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	conn, worker := setupSweeperTest(t, now)
	worker.cfg.PollInterval = 10 * time.Millisecond

	// The loop goroutine and the test share the in-memory database, so the
	// pool must stay on a single connection.
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	startCtx, cancel := context.WithCancel(context.Background())
	if err := worker.Start(startCtx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
		defer stopCancel()
		if err := worker.Stop(stopCtx); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}()

	// The lifecycle startup context expires shortly after boot. The sweep
	// loop must keep running on its own context.
	cancel()

	past := now.Add(-time.Hour)
	insertTxn(t, conn, 1, ledgerdomain.TypeDebt, ledgerdomain.StatusPending, &past)

	deadline := time.Now().Add(2 * time.Second)
	for {
		var row ledgerdomain.Transaction
		if err := conn.First(&row, "id = ?", 1).Error; err != nil {
			t.Fatalf("load row: %v", err)
		}
		if row.Status == ledgerdomain.StatusOverdue {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("sweep loop stopped after the startup context was cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	conn, worker := setupSweeperTest(t, now)

	past := now.Add(-time.Hour)
	insertTxn(t, conn, 1, ledgerdomain.TypeDebt, ledgerdomain.StatusPending, &past)

	if _, err := worker.SweepOverdue(context.Background(), 10); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	processed, err := worker.SweepOverdue(context.Background(), 10)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected nothing left to sweep, got %d", processed)
	}

	var eventCount int64
	if err := conn.Model(&events.OutboxEvent{}).Count(&eventCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected a single event across sweeps, got %d", eventCount)
	}
}

func TestSweepHonorsBatchLimit(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	conn, worker := setupSweeperTest(t, now)

	past := now.Add(-time.Hour)
	for i := snowflake.ID(1); i <= 5; i++ {
		insertTxn(t, conn, i, ledgerdomain.TypeDebt, ledgerdomain.StatusPending, &past)
	}

	processed, err := worker.SweepOverdue(context.Background(), 3)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if processed != 3 {
		t.Fatalf("expected batch of 3, got %d", processed)
	}

	var remaining int64
	if err := conn.Model(&ledgerdomain.Transaction{}).
		Where("status = ?", ledgerdomain.StatusPending).
		Count(&remaining).Error; err != nil {
		t.Fatalf("count remaining: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 pending left, got %d", remaining)
	}
}
