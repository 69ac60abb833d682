package jobs

import (
	"context"
	"time"
)

const paymentSyncBatch = 100

// SyncPendingPayments asks the gateway about payments that stayed
// PENDING longer than the configured age, in case a notification was
// lost. One failing payment does not stop the batch.
func (r *Runner) SyncPendingPayments(ctx context.Context) error {
	age := time.Duration(r.Config.PaymentSyncMinutes) * time.Minute
	stale, err := r.Payments.StalePending(ctx, r.clock().Add(-age), paymentSyncBatch)
	if err != nil {
		return err
	}

	var synced, failed int
	for _, p := range stale {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updated, err := r.Payments.Sync(ctx, p.ID)
		if err != nil {
			failed++
			r.Log.Warn().Err(err).Str("payment_id", p.ID.String()).Str("order_id", p.GatewayRef).Msg("payment sync failed")
			continue
		}
		if updated.Status != p.Status {
			synced++
		}
	}
	if len(stale) > 0 {
		r.Log.Info().Int("checked", len(stale)).Int("changed", synced).Int("failed", failed).Msg("pending payments synced")
	}
	return nil
}
