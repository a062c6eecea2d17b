package jobs

import (
	"context"
	"log/slog"
	"time"

	"parkly/internal/service"
)

// PendingPaymentAge is how long a bank payment may sit Pending before the
// sweeper polls the gateway for its real state.
const PendingPaymentAge = 5 * time.Minute

// PaymentReconciliationJob periodically reconciles sessions stuck in
// Pending. The gateway's webhook usually settles them first; this job covers
// lost webhooks and drivers who abandoned a payment page.
type PaymentReconciliationJob struct {
	sessions *service.SessionService
	interval time.Duration
	ticker   *time.Ticker
	done     chan bool
}

func NewPaymentReconciliationJob(sessions *service.SessionService, interval time.Duration) *PaymentReconciliationJob {
	if interval == 0 {
		interval = 60 * time.Second
	}
	return &PaymentReconciliationJob{
		sessions: sessions,
		interval: interval,
		done:     make(chan bool),
	}
}

// Start begins the background sweep loop.
func (j *PaymentReconciliationJob) Start(ctx context.Context) {
	slog.Info("Starting payment reconciliation job",
		"check_interval", j.interval.String(),
		"pending_age", PendingPaymentAge.String())

	j.ticker = time.NewTicker(j.interval)

	// Run initial sweep immediately
	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Payment reconciliation job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job.
func (j *PaymentReconciliationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *PaymentReconciliationJob) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-PendingPaymentAge)

	reconciled, err := j.sessions.ReconcilePending(ctx, cutoff)
	if err != nil {
		slog.Error("Payment reconciliation sweep failed", "error", err)
		return
	}

	if reconciled > 0 {
		slog.Info("Reconciled pending payments", "count", reconciled)
	} else {
		slog.Debug("No pending payments to reconcile")
	}
}
