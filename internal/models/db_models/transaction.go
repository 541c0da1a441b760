package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TxnStatusPending           TransactionStatus = "pending"
	TxnStatusProcessing        TransactionStatus = "processing"
	TxnStatusCompleted         TransactionStatus = "completed"
	TxnStatusFailed            TransactionStatus = "failed"
	TxnStatusCancelled         TransactionStatus = "cancelled"
	TxnStatusRefunded          TransactionStatus = "refunded"
	TxnStatusPartiallyRefunded TransactionStatus = "partially_refunded"
)

// Transaction is the durable record of one purchase attempt. It is the single
// source of truth for payment status and is never physically deleted.
type Transaction struct {
	BaseModel
	TransactionID string    `gorm:"uniqueIndex;not null"` // human-legible, e.g. TXN1756371234567AB12CD34
	AccountID     uuid.UUID `gorm:"index"`
	PlanID        uuid.UUID `gorm:"index"`

	// Price is copied from the plan at purchase time, in minor units (paise).
	AmountMinor int64
	Currency    string `gorm:"size:3;default:INR"`

	Status TransactionStatus `gorm:"index;default:pending"`

	// Gateway correlation
	GatewayOrderID       string `gorm:"index"` // hosted page / session id from initiation
	GatewayPaymentID     string `gorm:"index"` // assigned at confirmation
	GatewayTransactionID string

	// Retry bookkeeping for failed transactions
	RetryCount  int    `gorm:"default:0"`
	MaxRetries  int    `gorm:"default:3"`
	NextRetryAt *int64 `gorm:"index"`

	// Ledger correlation. InvoiceNumber is written at most once and is the
	// idempotency anchor for invoice creation. LedgerPaymentID marks that a
	// payment has been recorded against the invoice.
	InvoiceNumber   string `gorm:"index"`
	LedgerPaymentID string

	// Webhook observability
	WebhookReceived bool `gorm:"default:false"`
	WebhookVerified bool `gorm:"default:false"`

	FailureReason string

	// Unix seconds
	InitiatedAt int64
	CompletedAt *int64
	FailedAt    *int64
	CancelledAt *int64

	Metadata datatypes.JSON `gorm:"type:jsonb;default:'{}'"`

	Refunds []Refund `gorm:"foreignKey:TransactionID;references:TransactionID"`

	Account Account `gorm:"foreignKey:AccountID"`
	Plan    Plan    `gorm:"foreignKey:PlanID"`
}

// ProcessedRefundTotal sums refunds that actually went through. The invariant
// ProcessedRefundTotal() <= AmountMinor holds at all times.
func (t *Transaction) ProcessedRefundTotal() int64 {
	var total int64
	for _, r := range t.Refunds {
		if r.Status == RefundStatusProcessed {
			total += r.AmountMinor
		}
	}
	return total
}

// RefundableBalance is what is still available to refund, counting pending
// refunds against the balance so concurrent requests cannot oversubscribe it.
func (t *Transaction) RefundableBalance() int64 {
	balance := t.AmountMinor
	for _, r := range t.Refunds {
		if r.Status == RefundStatusProcessed || r.Status == RefundStatusPending {
			balance -= r.AmountMinor
		}
	}
	return balance
}

// IsFinal reports whether the transaction can still change state through the
// verification/webhook/retry paths. Completed transactions only move further
// via refunds.
func (t *Transaction) IsFinal() bool {
	switch t.Status {
	case TxnStatusCompleted, TxnStatusCancelled, TxnStatusRefunded, TxnStatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

// CanRetry reports whether a failed transaction still has retry budget.
func (t *Transaction) CanRetry() bool {
	return t.Status == TxnStatusFailed && t.RetryCount < t.MaxRetries
}
