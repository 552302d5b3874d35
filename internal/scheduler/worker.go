package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aramabarzani/creditbook/internal/clock"
	"github.com/aramabarzani/creditbook/internal/events"
	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	"github.com/aramabarzani/creditbook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Outbox *events.Outbox `optional:"true"`
	Config Config         `optional:"true"`
}

// Worker marks pending debts past their due date as overdue. Overdue status
// is a reporting signal; it never changes balances.
type Worker struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	outbox *events.Outbox
	cfg    Config

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		db:     p.DB,
		log:    p.Log.Named("scheduler.overdue"),
		clock:  p.Clock,
		outbox: p.Outbox,
		cfg:    cfg,
	}
}

// Start launches the sweep loop on a context the worker owns. The lifecycle
// startup context carries a boot deadline and must not bound the loop, so it
// is ignored.
func (w *Worker) Start(context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		w.RunForever(loopCtx)
	}()
	return nil
}

// Stop cancels the sweep loop and waits for it to drain.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(); err != nil {
			w.log.Warn("overdue sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := w.SweepOverdue(ctx, w.cfg.BatchSize)
	return err
}

// SweepOverdue flips one batch of matured pending debts to overdue and
// returns how many rows changed. Each sweep runs in a single transaction so
// the status flips and their outbox events commit together.
func (w *Worker) SweepOverdue(ctx context.Context, limit int) (int, error) {
	if w.db == nil {
		return 0, errors.New("sweeper_unavailable")
	}
	if limit <= 0 {
		limit = w.cfg.BatchSize
	}

	now := w.clock.Now()
	processed := 0
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []ledgerdomain.Transaction
		err := db.LockForUpdateSkipLocked(tx).
			Where("status = ? AND type = ? AND due_date IS NOT NULL AND due_date < ?",
				ledgerdomain.StatusPending, ledgerdomain.TypeDebt, now).
			Order("due_date ASC, id ASC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return err
		}

		for _, row := range rows {
			result := tx.Model(&ledgerdomain.Transaction{}).
				Where("id = ? AND status = ?", row.ID, ledgerdomain.StatusPending).
				Update("status", ledgerdomain.StatusOverdue)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}

			if w.outbox != nil {
				err := w.outbox.PublishTx(ctx, tx, events.Event{
					OwnerID: row.OwnerID,
					Type:    events.EventTransactionOverdue,
					Payload: map[string]any{
						"transaction_id": row.ID.String(),
						"customer_id":    row.CustomerID.String(),
						"amount":         row.Amount,
						"due_date":       row.DueDate.Format(time.RFC3339),
					},
					DedupeKey: "overdue:" + row.ID.String(),
				})
				if err != nil {
					return err
				}
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if processed > 0 {
		w.log.Info("marked transactions overdue", zap.Int("count", processed))
	}
	return processed, nil
}
