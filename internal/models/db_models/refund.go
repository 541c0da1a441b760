package db_models

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusFailed    RefundStatus = "failed"
)

type Refund struct {
	BaseModel
	RefundID      string `gorm:"uniqueIndex;not null"` // REF_<transactionID>_<unix>
	TransactionID string `gorm:"index;not null"`

	AmountMinor int64
	Reason      string
	Status      RefundStatus `gorm:"index;default:pending"`

	// Assigned by the gateway once the refund is processed
	GatewayRefundID string

	ProcessedAt *int64
}
