package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/expiry"
	"github.com/Kosench/go-url-tracker/internal/metrics"
	"github.com/Kosench/go-url-tracker/internal/model"
	"github.com/Kosench/go-url-tracker/internal/notifier"
	"github.com/Kosench/go-url-tracker/internal/repository"
)

const DefaultNotifyTimeout = 10 * time.Second

// Reconciler brings every record's active status in line with the clock
// and alerts on records that have just expired.
type Reconciler struct {
	repo          repository.RecordRepository
	notifier      notifier.Notifier
	clock         expiry.Clock
	log           *zap.Logger
	metrics       *metrics.Metrics
	notifyTimeout time.Duration
}

func NewReconciler(repo repository.RecordRepository, n notifier.Notifier, clock expiry.Clock, log *zap.Logger, m *metrics.Metrics, notifyTimeout time.Duration) *Reconciler {
	if n == nil {
		n = notifier.NewNoOpNotifier()
	}
	if clock == nil {
		clock = expiry.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if notifyTimeout <= 0 {
		notifyTimeout = DefaultNotifyTimeout
	}

	return &Reconciler{
		repo:          repo,
		notifier:      n,
		clock:         clock,
		log:           log,
		metrics:       m,
		notifyTimeout: notifyTimeout,
	}
}

// Sweep scans all records once. Status writes are compare-and-set against
// the status that was read, so a record changed by someone else mid-sweep is
// skipped and picked up by the next sweep. Only a transition this sweep
// persisted produces a notification.
func (r *Reconciler) Sweep(ctx context.Context) (*model.SweepResult, error) {
	start := time.Now()

	records, err := r.repo.ListAll(ctx)
	if err != nil {
		r.metrics.RecordSweep("failure", time.Since(start))
		return nil, storeError("failed to list records for sweep", err)
	}

	now := r.clock.Now()
	result := &model.SweepResult{Scanned: len(records)}

	for i := range records {
		if err := ctx.Err(); err != nil {
			r.metrics.RecordSweep("failure", time.Since(start))
			return result, fmt.Errorf("sweep interrupted: %w", err)
		}
		r.reconcile(ctx, &records[i], now, result)
	}

	r.metrics.RecordSweep("success", time.Since(start))
	r.log.Info("sweep completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("reactivated", result.Reactivated),
		zap.Int("skipped", result.Skipped),
		zap.Int("notified", result.Notified),
		zap.Int("notify_failures", result.NotifyFailures),
		zap.Int("write_failures", result.WriteFailures),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, record *model.URLRecord, now time.Time, result *model.SweepResult) {
	// Rows without an expiry never expire.
	if record.ExpireDateTime.IsZero() {
		result.Unchanged++
		return
	}

	previous := record.ActiveStatus
	computed := expiry.StatusAt(now, record.ExpireDateTime.Time)
	if computed == previous {
		result.Unchanged++
		return
	}

	won, err := r.repo.UpdateStatusIf(ctx, record.ID, previous, computed)
	if err != nil {
		result.WriteFailures++
		r.log.Error("failed to write record status",
			zap.Int64("id", record.ID),
			zap.Stringer("from", previous),
			zap.Stringer("to", computed),
			zap.Error(err))
		return
	}
	if !won {
		result.Skipped++
		r.log.Debug("record changed during sweep, skipping", zap.Int64("id", record.ID))
		return
	}

	record.ActiveStatus = computed
	r.metrics.RecordTransition(computed.String())

	if computed.IsActive() {
		result.Reactivated++
		r.log.Info("record reactivated", zap.Int64("id", record.ID), zap.String("url", record.URL))
		return
	}

	result.Expired++
	r.log.Info("record expired",
		zap.Int64("id", record.ID),
		zap.String("url", record.URL),
		zap.Time("expire_date_time", record.ExpireDateTime.Time))

	r.notify(ctx, record, result)
}

// notify never undoes the status write it follows.
func (r *Reconciler) notify(ctx context.Context, record *model.URLRecord, result *model.SweepResult) {
	notifyCtx, cancel := context.WithTimeout(ctx, r.notifyTimeout)
	defer cancel()

	if err := r.notifier.NotifyExpired(notifyCtx, record); err != nil {
		result.NotifyFailures++
		r.metrics.RecordNotification("failed")
		r.log.Warn("failed to send expiry notification",
			zap.Int64("id", record.ID),
			zap.Error(err))
		return
	}

	result.Notified++
	r.metrics.RecordNotification("sent")
}
