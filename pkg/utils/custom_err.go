package utils

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan not found")
	ErrPlanUnavailable          = errors.New("plan is not available for purchase")
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrAccountNotFound          = errors.New("account not found")
	ErrEmailTaken               = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrGatewayError             = errors.New("payment gateway error")
	ErrPaymentNotCompleted      = errors.New("payment not completed")
	ErrTransactionNotRefundable = errors.New("transaction is not refundable")
	ErrRefundExceedsBalance     = errors.New("refund amount exceeds refundable balance")
	ErrInvalidSignature         = errors.New("webhook signature mismatch")
	ErrDatabaseError            = errors.New("database error")
)
