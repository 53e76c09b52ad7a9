package settlement_monitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	"github.com/crosslane/bridge_service/pkg/metrics"
)

// PendingLister surfaces transactions that sit past their deadline
// without execution.
type PendingLister interface {
	ListPending(ctx context.Context, before time.Time) ([]*entities.BridgeTransaction, error)
}

// ExpiryRecorder writes the lapsed-transaction audit entry.
type ExpiryRecorder interface {
	RecordTxExpired(ctx context.Context, txID, sender, amount string, destChainID uint64)
}

// Worker periodically scans for lapsed transactions and reports them.
// It never mutates the ledger: expiry is derived from the deadline, and
// refunds stay an explicit governance action.
type Worker struct {
	ledger   PendingLister
	events   ExpiryRecorder
	spec     string
	batch    int
	cron     *cron.Cron
	logger   *zap.Logger
	reported map[string]struct{}
}

func NewWorker(ledger PendingLister, events ExpiryRecorder, spec string, batchSize int, logger *zap.Logger) *Worker {
	if spec == "" {
		spec = "*/5 * * * *"
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{
		ledger:   ledger,
		events:   events,
		spec:     spec,
		batch:    batchSize,
		cron:     cron.New(),
		logger:   logger,
		reported: make(map[string]struct{}),
	}
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		w.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("settlement monitor started", zap.String("spec", w.spec))
	return nil
}

// Sweep runs one scan pass. Exported so tests can drive it directly.
func (w *Worker) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	lapsed, err := w.ledger.ListPending(ctx, now)
	if err != nil {
		w.logger.Error("failed to list lapsed transactions", zap.Error(err))
		return
	}

	count := 0
	for _, tx := range lapsed {
		if count >= w.batch {
			break
		}
		if _, seen := w.reported[tx.ID]; seen {
			continue
		}
		// Transactions under an unexpired challenge window are frozen,
		// not lapsed.
		if tx.UnderActiveChallenge(now) {
			continue
		}

		w.reported[tx.ID] = struct{}{}
		metrics.TransactionsExpired.Inc()
		count++

		if w.events != nil {
			w.events.RecordTxExpired(ctx, tx.ID, tx.Sender, tx.Amount.String(), tx.DestChainID)
		}

		w.logger.Warn("transaction lapsed without execution",
			zap.String("transaction_id", tx.ID),
			zap.String("sender", tx.Sender),
			zap.String("amount", tx.Amount.String()),
			zap.Uint64("dest_chain_id", tx.DestChainID),
			zap.Time("deadline", tx.Deadline))
	}

	if count > 0 {
		w.logger.Info("settlement sweep complete", zap.Int("newly_lapsed", count))
	}
}

func (w *Worker) Stop() {
	w.cron.Stop()
	w.logger.Info("settlement monitor stopped")
}
