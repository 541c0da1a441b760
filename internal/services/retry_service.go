package services

import (
	"context"
	"fmt"
	"time"

	"github.com/growsinofficial/kyc-sub000/internal/gateway"
	"github.com/growsinofficial/kyc-sub000/internal/repositories"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// retryBackoffStep is the linear backoff unit: after the Nth failure the next
// attempt is scheduled N*30 minutes out.
const retryBackoffStep = 30 * time.Minute

const retrySweepBatch = 50

// IRetryService owns retry bookkeeping for failed transactions.
// Reconciliation side effects are deliberately not scheduled here; they are
// best-effort and logged.
type IRetryService interface {
	// Schedule applies backoff to a transaction that just failed. Once the
	// retry budget is exhausted the transaction stays failed for human
	// escalation; it is never auto-cancelled.
	Schedule(ctx context.Context, transactionID string) error
	// Sweep re-verifies every retry-eligible failed transaction against the
	// gateway.
	Sweep(ctx context.Context) error
	Start()
	Stop()
}

type retryService struct {
	txnRepo        repositories.ITransactionRepository
	gateway        gateway.Client
	reconciliation IReconciliationService
	log            zerolog.Logger
	cron           *cron.Cron
	now            func() time.Time
}

func NewRetryService(
	txnRepo repositories.ITransactionRepository,
	gatewayClient gateway.Client,
	reconciliation IReconciliationService,
	log zerolog.Logger,
) IRetryService {
	return &retryService{
		txnRepo:        txnRepo,
		gateway:        gatewayClient,
		reconciliation: reconciliation,
		log:            log,
		now:            time.Now,
	}
}

func (r *retryService) Schedule(ctx context.Context, transactionID string) error {
	txn, err := r.txnRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if txn == nil {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	if !txn.CanRetry() {
		r.log.Warn().Str("transaction_id", transactionID).Int("retry_count", txn.RetryCount).
			Msg("retry budget exhausted, leaving transaction failed")
		// drop any spent slot so the sweep does not keep re-checking
		if err := r.txnRepo.ClearRetrySchedule(ctx, transactionID); err != nil {
			return fmt.Errorf("clear retry schedule: %w", err)
		}
		return nil
	}

	count := txn.RetryCount + 1
	nextRetryAt := r.now().Add(time.Duration(count) * retryBackoffStep)
	if err := r.txnRepo.ScheduleRetry(ctx, transactionID, count, nextRetryAt); err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}
	r.log.Info().Str("transaction_id", transactionID).Int("retry_count", count).
		Time("next_retry_at", nextRetryAt).Msg("retry scheduled")
	return nil
}

func (r *retryService) Sweep(ctx context.Context) error {
	txns, err := r.txnRepo.ListRetryEligible(ctx, r.now(), retrySweepBatch)
	if err != nil {
		return fmt.Errorf("list retry-eligible: %w", err)
	}

	for _, txn := range txns {
		status, err := r.gateway.GetHostedPage(ctx, txn.GatewayOrderID)
		if err != nil {
			r.log.Warn().Err(err).Str("transaction_id", txn.TransactionID).Msg("retry status query failed")
			if err := r.Schedule(ctx, txn.TransactionID); err != nil {
				r.log.Error().Err(err).Str("transaction_id", txn.TransactionID).Msg("reschedule failed")
			}
			continue
		}

		if status.Status == gateway.StatusPaid {
			won, err := r.txnRepo.MarkCompleted(ctx, txn.TransactionID, status.PaymentID, status.TransactionID, r.now())
			if err != nil {
				r.log.Error().Err(err).Str("transaction_id", txn.TransactionID).Msg("retry finalize failed")
				continue
			}
			if won {
				r.reconciliation.Enqueue(txn.TransactionID)
			}
			continue
		}

		if err := r.Schedule(ctx, txn.TransactionID); err != nil {
			r.log.Error().Err(err).Str("transaction_id", txn.TransactionID).Msg("reschedule failed")
		}
	}
	return nil
}

func (r *retryService) Start() {
	r.cron = cron.New()
	_, err := r.cron.AddFunc("@every 5m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		if err := r.Sweep(ctx); err != nil {
			r.log.Error().Err(err).Msg("retry sweep failed")
		}
	})
	if err != nil {
		r.log.Error().Err(err).Msg("failed to register retry sweep")
		return
	}
	r.cron.Start()
}

func (r *retryService) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}
