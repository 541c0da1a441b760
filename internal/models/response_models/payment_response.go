package response_models

type InitiatePaymentResponse struct {
	TransactionID string `json:"transactionId"`
	PaymentURL    string `json:"paymentUrl"`
}

type VerifyPaymentResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

type RefundResponse struct {
	RefundID      string `json:"refundId"`
	TransactionID string `json:"transactionId"`
	AmountMinor   int64  `json:"amount"`
	Status        string `json:"status"`
}

type TransactionResponse struct {
	TransactionID string           `json:"transactionId"`
	PlanID        string           `json:"planId"`
	AmountMinor   int64            `json:"amount"`
	Currency      string           `json:"currency"`
	Status        string           `json:"status"`
	InvoiceNumber string           `json:"invoiceNumber,omitempty"`
	InitiatedAt   int64            `json:"initiatedAt"`
	CompletedAt   *int64           `json:"completedAt,omitempty"`
	Refunds       []RefundResponse `json:"refunds,omitempty"`
}
