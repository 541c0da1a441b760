package request_models

type InitiatePaymentRequest struct {
	PlanID        string `json:"planId" binding:"required"`
	PaymentMethod string `json:"paymentMethod"`
}

type VerifyPaymentRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	PaymentID     string `json:"paymentId" binding:"required"`
	Signature     string `json:"signature"`
}

type CreateRefundRequest struct {
	AmountMinor int64  `json:"amount" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}
