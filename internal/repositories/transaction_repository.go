package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"gorm.io/gorm"
)

// ITransactionRepository is the durable transaction store. Finalizing writes
// are conditional updates keyed on the current status, so racing callers
// (verification vs webhook) resolve to exactly one effective transition.
type ITransactionRepository interface {
	Create(ctx context.Context, txn *db_models.Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*db_models.Transaction, error)
	GetByGatewayOrderID(ctx context.Context, orderID string) (*db_models.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]db_models.Transaction, error)

	SetGatewayOrder(ctx context.Context, transactionID string, orderID string) error

	// MarkProcessing moves a pending transaction into processing while a
	// confirmation path is working on it. Best effort, not a lock.
	MarkProcessing(ctx context.Context, transactionID string) error

	// MarkCompleted transitions to completed iff the transaction is not
	// already in a terminal state. Returns true only for the caller that won
	// the transition; every later caller gets false with no write.
	MarkCompleted(ctx context.Context, transactionID, gatewayPaymentID, gatewayTransactionID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, transactionID, reason string, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, transactionID string, at time.Time) (bool, error)

	SetWebhookFlags(ctx context.Context, transactionID string, verified bool) error

	// SetInvoiceNumber writes the invoice number only when none is set and
	// returns the value that ended up on the record, which may be a
	// previously written one.
	SetInvoiceNumber(ctx context.Context, transactionID, invoiceNumber string) (string, error)
	MarkPaymentRecorded(ctx context.Context, transactionID, ledgerPaymentID string) error

	ScheduleRetry(ctx context.Context, transactionID string, retryCount int, nextRetryAt time.Time) error
	// ClearRetrySchedule drops the pending retry slot once the budget is
	// exhausted, so the sweep stops picking the transaction up.
	ClearRetrySchedule(ctx context.Context, transactionID string) error
	ListRetryEligible(ctx context.Context, now time.Time, limit int) ([]db_models.Transaction, error)

	CreateRefund(ctx context.Context, refund *db_models.Refund) error
	MarkRefundProcessed(ctx context.Context, refundID, gatewayRefundID string, at time.Time) error
	MarkRefundFailed(ctx context.Context, refundID string) error
	// RecomputeRefundStatus derives refunded/partially_refunded from the
	// processed refund totals inside one database transaction.
	RecomputeRefundStatus(ctx context.Context, transactionID string) error
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) ITransactionRepository {
	return &TransactionRepository{db: db}
}

// Statuses the finalize paths may move away from.
var openStatuses = []db_models.TransactionStatus{
	db_models.TxnStatusPending,
	db_models.TxnStatusProcessing,
	db_models.TxnStatusFailed,
}

func (r *TransactionRepository) Create(ctx context.Context, txn *db_models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Refunds").
		First(&txn, "transaction_id = ?", transactionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) GetByGatewayOrderID(ctx context.Context, orderID string) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Refunds").
		First(&txn, "gateway_order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Preload("Refunds").
		Where("account_id = ?", accountID).
		Order("initiated_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *TransactionRepository) SetGatewayOrder(ctx context.Context, transactionID string, orderID string) error {
	return r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Update("gateway_order_id", orderID).Error
}

func (r *TransactionRepository) MarkProcessing(ctx context.Context, transactionID string) error {
	return r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, db_models.TxnStatusPending).
		Update("status", db_models.TxnStatusProcessing).Error
}

func (r *TransactionRepository) MarkCompleted(ctx context.Context, transactionID, gatewayPaymentID, gatewayTransactionID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ? AND status IN ?", transactionID, openStatuses).
		Updates(map[string]interface{}{
			"status":       db_models.TxnStatusCompleted,
			"completed_at": at.Unix(),
			// never clobber an id a prior writer already filled in
			"gateway_payment_id":     gorm.Expr("COALESCE(NULLIF(?, ''), gateway_payment_id)", gatewayPaymentID),
			"gateway_transaction_id": gorm.Expr("COALESCE(NULLIF(?, ''), gateway_transaction_id)", gatewayTransactionID),
			"failure_reason":         "",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TransactionRepository) MarkFailed(ctx context.Context, transactionID, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ? AND status IN ?", transactionID, openStatuses).
		Updates(map[string]interface{}{
			"status":         db_models.TxnStatusFailed,
			"failed_at":      at.Unix(),
			"failure_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TransactionRepository) MarkCancelled(ctx context.Context, transactionID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ? AND status IN ?", transactionID, []db_models.TransactionStatus{
			db_models.TxnStatusPending,
			db_models.TxnStatusProcessing,
		}).
		Updates(map[string]interface{}{
			"status":       db_models.TxnStatusCancelled,
			"cancelled_at": at.Unix(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TransactionRepository) SetWebhookFlags(ctx context.Context, transactionID string, verified bool) error {
	return r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Updates(map[string]interface{}{
			"webhook_received": true,
			"webhook_verified": verified,
		}).Error
}

func (r *TransactionRepository) SetInvoiceNumber(ctx context.Context, transactionID, invoiceNumber string) (string, error) {
	res := r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ? AND (invoice_number IS NULL OR invoice_number = '')", transactionID).
		Update("invoice_number", invoiceNumber)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		return invoiceNumber, nil
	}
	// someone else wrote first; the stored value wins
	txn, err := r.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return "", err
	}
	if txn == nil {
		return "", gorm.ErrRecordNotFound
	}
	return txn.InvoiceNumber, nil
}

func (r *TransactionRepository) MarkPaymentRecorded(ctx context.Context, transactionID, ledgerPaymentID string) error {
	return r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ? AND (ledger_payment_id IS NULL OR ledger_payment_id = '')", transactionID).
		Update("ledger_payment_id", ledgerPaymentID).Error
}

func (r *TransactionRepository) ScheduleRetry(ctx context.Context, transactionID string, retryCount int, nextRetryAt time.Time) error {
	return r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, db_models.TxnStatusFailed).
		Updates(map[string]interface{}{
			"retry_count":   retryCount,
			"next_retry_at": nextRetryAt.Unix(),
		}).Error
}

func (r *TransactionRepository) ClearRetrySchedule(ctx context.Context, transactionID string) error {
	return r.db.WithContext(ctx).Model(&db_models.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Update("next_retry_at", nil).Error
}

// A scheduled slot is always honored, even the last budgeted one; the count
// guard applies only to never-scheduled failures (webhook-failed rows).
func (r *TransactionRepository) ListRetryEligible(ctx context.Context, now time.Time, limit int) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND ((next_retry_at IS NOT NULL AND next_retry_at <= ?) OR (next_retry_at IS NULL AND retry_count < max_retries))",
			db_models.TxnStatusFailed, now.Unix()).
		Order("next_retry_at ASC NULLS FIRST").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *TransactionRepository) CreateRefund(ctx context.Context, refund *db_models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *TransactionRepository) MarkRefundProcessed(ctx context.Context, refundID, gatewayRefundID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&db_models.Refund{}).
		Where("refund_id = ?", refundID).
		Updates(map[string]interface{}{
			"status":            db_models.RefundStatusProcessed,
			"gateway_refund_id": gatewayRefundID,
			"processed_at":      at.Unix(),
		}).Error
}

func (r *TransactionRepository) MarkRefundFailed(ctx context.Context, refundID string) error {
	return r.db.WithContext(ctx).Model(&db_models.Refund{}).
		Where("refund_id = ?", refundID).
		Update("status", db_models.RefundStatusFailed).Error
}

func (r *TransactionRepository) RecomputeRefundStatus(ctx context.Context, transactionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn db_models.Transaction
		if err := tx.Preload("Refunds").First(&txn, "transaction_id = ?", transactionID).Error; err != nil {
			return err
		}

		total := txn.ProcessedRefundTotal()
		status := txn.Status
		switch {
		case total >= txn.AmountMinor && total > 0:
			status = db_models.TxnStatusRefunded
		case total > 0:
			status = db_models.TxnStatusPartiallyRefunded
		}
		if status == txn.Status {
			return nil
		}
		return tx.Model(&db_models.Transaction{}).
			Where("transaction_id = ?", transactionID).
			Update("status", status).Error
	})
}
