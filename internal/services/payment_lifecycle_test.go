package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"github.com/growsinofficial/kyc-sub000/internal/models/request_models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPaymentLifecycle walks the happy path end to end: initiation, gateway
// confirmation, ledger reconciliation, then a duplicate webhook delivery that
// must change nothing.
func TestPaymentLifecycle(t *testing.T) {
	ctx := context.Background()

	txnRepo := newFakeTxnRepo()
	accountRepo := newFakeAccountRepo()
	ledgerClient := newFakeLedger()
	mail := &fakeMail{}
	gw := newFakeGateway()
	eventRepo := newFakeEventRepo()

	plan := &db_models.Plan{Code: "pro_monthly", Name: "Pro Monthly", PriceMinor: 99900, Currency: "INR", IsActive: true}
	planRepo := newFakePlanRepo(plan)

	account := &db_models.Account{Name: "Asha Rao", Email: "asha@example.com"}
	require.NoError(t, accountRepo.Create(ctx, account))

	recon := NewReconciliationService(txnRepo, accountRepo, planRepo, ledgerClient, mail, zerolog.Nop())
	retry := NewRetryService(txnRepo, gw, recon, zerolog.Nop())
	payments := NewPaymentService(txnRepo, planRepo, gw, recon, retry, zerolog.Nop())
	webhooks := NewWebhookService(testWebhookSecret, txnRepo, eventRepo, recon, zerolog.Nop())

	// 1. the user starts checkout for the Rs 999 plan
	initResp, err := payments.InitiatePayment(ctx, account.ID, request_models.InitiatePaymentRequest{PlanID: plan.ID.String()})
	require.NoError(t, err)

	// 2. the user pays on the hosted page
	gw.setPaid("hp_001", "pay_123", "gw_txn_456")

	// 3. the client returns and verifies
	verifyResp, err := payments.VerifyPayment(ctx, account.ID, request_models.VerifyPaymentRequest{
		TransactionID: initResp.TransactionID,
		PaymentID:     "pay_123",
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", verifyResp.Status)

	// 4. reconciliation mirrors the payment into the ledger
	require.NoError(t, recon.Process(ctx, initResp.TransactionID))

	txn, _ := txnRepo.GetByTransactionID(ctx, initResp.TransactionID)
	require.Equal(t, db_models.TxnStatusCompleted, txn.Status)
	require.NotEmpty(t, txn.InvoiceNumber)
	require.NotEmpty(t, txn.LedgerPaymentID)
	completedAt := *txn.CompletedAt
	invoiceNumber := txn.InvoiceNumber

	// 5. the gateway's webhook arrives late, twice
	body := []byte(fmt.Sprintf(
		`{"event_type":"payment_succeeded","payment_id":"pay_123","hostedpage_id":"%s","status":"paid"}`,
		txn.GatewayOrderID))
	signature := signBody(body)
	require.NoError(t, webhooks.ProcessEvent(ctx, body, signature))
	require.NoError(t, webhooks.ProcessEvent(ctx, body, signature))

	// drain anything the webhook path queued
	recon.Start()
	time.Sleep(50 * time.Millisecond)
	recon.Stop()

	txn, _ = txnRepo.GetByTransactionID(ctx, initResp.TransactionID)
	assert.Equal(t, completedAt, *txn.CompletedAt, "late webhooks must not move the completion time")
	assert.Equal(t, invoiceNumber, txn.InvoiceNumber)
	assert.Len(t, ledgerClient.invoices, 1, "exactly one invoice for the whole lifecycle")
	assert.Len(t, ledgerClient.payments, 1, "exactly one ledger payment for the whole lifecycle")
	assert.True(t, txn.WebhookReceived)
	assert.True(t, txn.WebhookVerified)

	history, err := payments.GetHistory(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "completed", history[0].Status)
	assert.Equal(t, invoiceNumber, history[0].InvoiceNumber)
}

// TestPaymentLifecycleFailureAndRetry covers the unhappy path: a declined
// payment, backoff scheduling, then a later sweep that finds the money.
func TestPaymentLifecycleFailureAndRetry(t *testing.T) {
	ctx := context.Background()

	txnRepo := newFakeTxnRepo()
	accountRepo := newFakeAccountRepo()
	ledgerClient := newFakeLedger()
	mail := &fakeMail{}
	gw := newFakeGateway()

	plan := &db_models.Plan{Code: "basic", Name: "Basic", PriceMinor: 49900, Currency: "INR", IsActive: true}
	planRepo := newFakePlanRepo(plan)

	account := &db_models.Account{Name: "Ravi Iyer", Email: "ravi@example.com"}
	require.NoError(t, accountRepo.Create(ctx, account))

	recon := NewReconciliationService(txnRepo, accountRepo, planRepo, ledgerClient, mail, zerolog.Nop())
	retrySvc := NewRetryService(txnRepo, gw, recon, zerolog.Nop()).(*retryService)
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	retrySvc.now = func() time.Time { return now }
	payments := NewPaymentService(txnRepo, planRepo, gw, recon, retrySvc, zerolog.Nop())

	initResp, err := payments.InitiatePayment(ctx, account.ID, request_models.InitiatePaymentRequest{PlanID: plan.ID.String()})
	require.NoError(t, err)

	gw.setFailed("hp_001", "insufficient funds")
	_, err = payments.VerifyPayment(ctx, account.ID, request_models.VerifyPaymentRequest{
		TransactionID: initResp.TransactionID,
		PaymentID:     "pay_x",
	})
	require.Error(t, err)

	txn, _ := txnRepo.GetByTransactionID(ctx, initResp.TransactionID)
	require.Equal(t, db_models.TxnStatusFailed, txn.Status)
	require.Equal(t, 1, txn.RetryCount)
	require.Equal(t, now.Add(30*time.Minute).Unix(), *txn.NextRetryAt)

	// 35 minutes later the bank settles and the sweep finds the payment
	now = now.Add(35 * time.Minute)
	gw.setPaid("hp_001", "pay_settled", "gw_settled")
	require.NoError(t, retrySvc.Sweep(ctx))

	txn, _ = txnRepo.GetByTransactionID(ctx, initResp.TransactionID)
	assert.Equal(t, db_models.TxnStatusCompleted, txn.Status)
	assert.Equal(t, "pay_settled", txn.GatewayPaymentID)
	assert.Equal(t, 1, txn.RetryCount, "a successful retry stops the backoff clock")
}

func TestPaymentHistoryOrdering(t *testing.T) {
	ctx := context.Background()
	txnRepo := newFakeTxnRepo()
	accountID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, txnRepo.Create(ctx, &db_models.Transaction{
			TransactionID: fmt.Sprintf("TXN00000000000%dAAAAAAA%d", i, i),
			AccountID:     accountID,
			Status:        db_models.TxnStatusPending,
			InitiatedAt:   int64(1000 + i),
		}))
	}

	txns, err := txnRepo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.True(t, txns[0].InitiatedAt >= txns[1].InitiatedAt && txns[1].InitiatedAt >= txns[2].InitiatedAt,
		"history is newest first")
}
