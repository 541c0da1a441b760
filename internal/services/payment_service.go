package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/growsinofficial/kyc-sub000/internal/gateway"
	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"github.com/growsinofficial/kyc-sub000/internal/models/request_models"
	"github.com/growsinofficial/kyc-sub000/internal/models/response_models"
	"github.com/growsinofficial/kyc-sub000/internal/repositories"
	"github.com/growsinofficial/kyc-sub000/pkg/utils"
	"github.com/rs/zerolog"
)

type IPaymentService interface {
	InitiatePayment(ctx context.Context, accountID uuid.UUID, req request_models.InitiatePaymentRequest) (*response_models.InitiatePaymentResponse, error)
	VerifyPayment(ctx context.Context, accountID uuid.UUID, req request_models.VerifyPaymentRequest) (*response_models.VerifyPaymentResponse, error)
	GetHistory(ctx context.Context, accountID uuid.UUID) ([]response_models.TransactionResponse, error)
	CancelPayment(ctx context.Context, accountID uuid.UUID, transactionID string) error
}

type paymentService struct {
	txnRepo        repositories.ITransactionRepository
	planRepo       repositories.IPlanRepository
	gateway        gateway.Client
	reconciliation IReconciliationService
	retry          IRetryService
	log            zerolog.Logger
}

func NewPaymentService(
	txnRepo repositories.ITransactionRepository,
	planRepo repositories.IPlanRepository,
	gatewayClient gateway.Client,
	reconciliation IReconciliationService,
	retry IRetryService,
	log zerolog.Logger,
) IPaymentService {
	return &paymentService{
		txnRepo:        txnRepo,
		planRepo:       planRepo,
		gateway:        gatewayClient,
		reconciliation: reconciliation,
		retry:          retry,
		log:            log,
	}
}

// InitiatePayment opens a pending transaction and a gateway checkout session.
// The price is copied off the plan at purchase time; later plan edits do not
// reprice open transactions.
func (p *paymentService) InitiatePayment(ctx context.Context, accountID uuid.UUID, req request_models.InitiatePaymentRequest) (*response_models.InitiatePaymentResponse, error) {
	plan, err := p.planRepo.GetPlanByID(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if plan == nil {
		return nil, utils.ErrPlanNotFound
	}
	if !plan.IsAvailable(time.Now()) {
		return nil, utils.ErrPlanUnavailable
	}

	txn := &db_models.Transaction{
		TransactionID: utils.NewTransactionID(),
		AccountID:     accountID,
		PlanID:        plan.ID,
		AmountMinor:   plan.PriceMinor,
		Currency:      plan.Currency,
		Status:        db_models.TxnStatusPending,
		MaxRetries:    3,
		InitiatedAt:   time.Now().Unix(),
	}
	if err := p.txnRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("%w: create transaction: %v", utils.ErrDatabaseError, err)
	}

	page, err := p.gateway.CreateHostedPage(ctx, gateway.CreateHostedPageRequest{
		Reference:   txn.TransactionID,
		AmountMinor: txn.AmountMinor,
		Currency:    txn.Currency,
		Description: plan.Name,
		CustomerRef: accountID.String(),
		Method:      req.PaymentMethod,
	})
	if err != nil {
		// Hard failure: no session exists to poll, so the caller must start
		// over. The pending row stays behind with no session id.
		p.log.Error().Err(err).Str("transaction_id", txn.TransactionID).Msg("hosted page creation failed")
		return nil, fmt.Errorf("%w: %v", utils.ErrGatewayError, err)
	}

	if err := p.txnRepo.SetGatewayOrder(ctx, txn.TransactionID, page.HostedPageID); err != nil {
		return nil, fmt.Errorf("%w: store gateway order: %v", utils.ErrDatabaseError, err)
	}

	return &response_models.InitiatePaymentResponse{
		TransactionID: txn.TransactionID,
		PaymentURL:    page.URL,
	}, nil
}

// VerifyPayment is the client-driven confirmation path. It is an idempotent
// pull: the webhook may already have finalized the transaction, in which case
// this returns success without touching anything.
func (p *paymentService) VerifyPayment(ctx context.Context, accountID uuid.UUID, req request_models.VerifyPaymentRequest) (*response_models.VerifyPaymentResponse, error) {
	txn, err := p.txnRepo.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if txn == nil || txn.AccountID != accountID {
		return nil, utils.ErrTransactionNotFound
	}

	if txn.Status == db_models.TxnStatusCompleted {
		return &response_models.VerifyPaymentResponse{
			TransactionID: txn.TransactionID,
			Status:        string(db_models.TxnStatusCompleted),
		}, nil
	}

	if err := p.txnRepo.MarkProcessing(ctx, txn.TransactionID); err != nil {
		p.log.Warn().Err(err).Str("transaction_id", txn.TransactionID).Msg("mark processing failed")
	}

	status, err := p.gateway.GetHostedPage(ctx, txn.GatewayOrderID)
	if err != nil {
		p.fail(ctx, txn, fmt.Sprintf("gateway status query failed: %v", err))
		return nil, fmt.Errorf("%w: %v", utils.ErrGatewayError, err)
	}

	if status.Status != gateway.StatusPaid {
		reason := status.FailureReason
		if reason == "" {
			reason = "gateway reported status " + status.Status
		}
		p.fail(ctx, txn, reason)
		return nil, fmt.Errorf("%w: %s", utils.ErrPaymentNotCompleted, status.Status)
	}

	paymentID := status.PaymentID
	if paymentID == "" {
		paymentID = req.PaymentID
	}
	won, err := p.txnRepo.MarkCompleted(ctx, txn.TransactionID, paymentID, status.TransactionID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: finalize: %v", utils.ErrDatabaseError, err)
	}
	if won {
		// Mirror the outcome into the ledger off the response path; its
		// failure must never fail verification.
		p.reconciliation.Enqueue(txn.TransactionID)
	}

	return &response_models.VerifyPaymentResponse{
		TransactionID: txn.TransactionID,
		Status:        string(db_models.TxnStatusCompleted),
	}, nil
}

func (p *paymentService) GetHistory(ctx context.Context, accountID uuid.UUID) ([]response_models.TransactionResponse, error) {
	txns, err := p.txnRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	out := make([]response_models.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		resp := response_models.TransactionResponse{
			TransactionID: t.TransactionID,
			PlanID:        t.PlanID.String(),
			AmountMinor:   t.AmountMinor,
			Currency:      t.Currency,
			Status:        string(t.Status),
			InvoiceNumber: t.InvoiceNumber,
			InitiatedAt:   t.InitiatedAt,
			CompletedAt:   t.CompletedAt,
		}
		for _, r := range t.Refunds {
			resp.Refunds = append(resp.Refunds, response_models.RefundResponse{
				RefundID:      r.RefundID,
				TransactionID: r.TransactionID,
				AmountMinor:   r.AmountMinor,
				Status:        string(r.Status),
			})
		}
		out = append(out, resp)
	}
	return out, nil
}

// CancelPayment marks a still-open transaction cancelled when the user
// abandons checkout. Terminal, no retry.
func (p *paymentService) CancelPayment(ctx context.Context, accountID uuid.UUID, transactionID string) error {
	txn, err := p.txnRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if txn == nil || txn.AccountID != accountID {
		return utils.ErrTransactionNotFound
	}
	if _, err := p.txnRepo.MarkCancelled(ctx, transactionID, time.Now()); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (p *paymentService) fail(ctx context.Context, txn *db_models.Transaction, reason string) {
	won, err := p.txnRepo.MarkFailed(ctx, txn.TransactionID, reason, time.Now())
	if err != nil {
		p.log.Error().Err(err).Str("transaction_id", txn.TransactionID).Msg("mark failed errored")
		return
	}
	if won {
		p.retry.Schedule(ctx, txn.TransactionID)
	}
}
