package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/bitrust/admin-backend/internal/core/ports"
	"github.com/bitrust/admin-backend/internal/entities"
	"github.com/bitrust/admin-backend/internal/store"
)

// DepositWatcher periodically reports deposits that have been waiting for an
// admin decision for too long. It only reads and notifies; deposits are
// financial records and are never touched by a background job.
type DepositWatcher struct {
	logger   *slog.Logger
	deposits ports.DepositService
	feed     ports.EventPublisher

	// Age after which a pending deposit is considered stale
	maxPendingAge time.Duration

	// How often to scan
	checkInterval time.Duration
}

func NewDepositWatcher(
	logger *slog.Logger,
	deposits ports.DepositService,
	feed ports.EventPublisher,
	maxPendingAge time.Duration,
	checkInterval time.Duration,
) *DepositWatcher {
	return &DepositWatcher{
		logger:        logger,
		deposits:      deposits,
		feed:          feed,
		maxPendingAge: maxPendingAge,
		checkInterval: checkInterval,
	}
}

// Start runs the periodic scan until the context is cancelled.
func (dw *DepositWatcher) Start(ctx context.Context) {
	dw.logger.Info("Starting deposit watcher",
		"max_pending_age", dw.maxPendingAge.String(),
		"check_interval", dw.checkInterval.String())

	if err := dw.reportStaleDeposits(ctx); err != nil {
		dw.logger.Error("Initial stale deposit scan failed", "error", err)
	}

	ticker := time.NewTicker(dw.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.logger.Info("Deposit watcher stopped")
			return
		case <-ticker.C:
			if err := dw.reportStaleDeposits(ctx); err != nil {
				dw.logger.Error("Stale deposit scan failed", "error", err)
			}
		}
	}
}

func (dw *DepositWatcher) reportStaleDeposits(ctx context.Context) error {
	stale, err := dw.deposits.ListStale(ctx, dw.maxPendingAge)
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		dw.logger.Debug("No stale pending deposits")
		return nil
	}

	for _, deposit := range stale {
		dw.logger.Warn("Deposit pending too long",
			"deposit", deposit.ID,
			"user_id", deposit.UserID,
			"amount", deposit.Amount.String(),
			"age", time.Since(deposit.CreatedAt).Round(time.Minute).String())

		dw.feed.Publish(entities.ChangeEvent{
			Operation:  "deposit_stale",
			Collection: store.CollectionDeposits,
			ID:         deposit.ID,
			At:         time.Now().UTC(),
		})
	}

	dw.logger.Info("Reported stale pending deposits", "count", len(stale))
	return nil
}
