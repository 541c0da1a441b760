package services

import (
	"context"
	"fmt"
	"time"

	"github.com/growsinofficial/kyc-sub000/internal/gateway"
	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"github.com/growsinofficial/kyc-sub000/internal/models/response_models"
	"github.com/growsinofficial/kyc-sub000/internal/repositories"
	"github.com/growsinofficial/kyc-sub000/pkg/utils"
	"github.com/rs/zerolog"
)

type IRefundService interface {
	CreateRefund(ctx context.Context, transactionID string, amountMinor int64, reason string) (*response_models.RefundResponse, error)
}

type refundService struct {
	txnRepo repositories.ITransactionRepository
	gateway gateway.Client
	log     zerolog.Logger
}

func NewRefundService(
	txnRepo repositories.ITransactionRepository,
	gatewayClient gateway.Client,
	log zerolog.Logger,
) IRefundService {
	return &refundService{txnRepo: txnRepo, gateway: gatewayClient, log: log}
}

// CreateRefund refunds part or all of a completed transaction. The balance
// check runs before any write: sum(processed refunds) can never exceed the
// transaction amount.
func (s *refundService) CreateRefund(ctx context.Context, transactionID string, amountMinor int64, reason string) (*response_models.RefundResponse, error) {
	if amountMinor <= 0 {
		return nil, utils.ErrRefundExceedsBalance
	}

	txn, err := s.txnRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}

	switch txn.Status {
	case db_models.TxnStatusCompleted, db_models.TxnStatusPartiallyRefunded:
	default:
		return nil, utils.ErrTransactionNotRefundable
	}

	if amountMinor > txn.RefundableBalance() {
		return nil, utils.ErrRefundExceedsBalance
	}

	now := time.Now()
	refund := &db_models.Refund{
		RefundID:      utils.NewRefundID(txn.TransactionID, now),
		TransactionID: txn.TransactionID,
		AmountMinor:   amountMinor,
		Reason:        reason,
		Status:        db_models.RefundStatusPending,
	}
	if err := s.txnRepo.CreateRefund(ctx, refund); err != nil {
		return nil, fmt.Errorf("%w: create refund: %v", utils.ErrDatabaseError, err)
	}

	result, err := s.gateway.CreateRefund(ctx, gateway.RefundRequest{
		PaymentID:   txn.GatewayPaymentID,
		AmountMinor: amountMinor,
		Reason:      reason,
		Reference:   refund.RefundID,
	})
	if err != nil {
		s.log.Error().Err(err).Str("refund_id", refund.RefundID).Msg("gateway refund failed")
		if markErr := s.txnRepo.MarkRefundFailed(ctx, refund.RefundID); markErr != nil {
			s.log.Error().Err(markErr).Str("refund_id", refund.RefundID).Msg("mark refund failed errored")
		}
		return nil, fmt.Errorf("%w: %v", utils.ErrGatewayError, err)
	}

	if err := s.txnRepo.MarkRefundProcessed(ctx, refund.RefundID, result.RefundID, now); err != nil {
		return nil, fmt.Errorf("%w: mark refund processed: %v", utils.ErrDatabaseError, err)
	}
	if err := s.txnRepo.RecomputeRefundStatus(ctx, txn.TransactionID); err != nil {
		return nil, fmt.Errorf("%w: recompute refund status: %v", utils.ErrDatabaseError, err)
	}

	return &response_models.RefundResponse{
		RefundID:      refund.RefundID,
		TransactionID: txn.TransactionID,
		AmountMinor:   amountMinor,
		Status:        string(db_models.RefundStatusProcessed),
	}, nil
}
