package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"github.com/growsinofficial/kyc-sub000/internal/repositories"
	"github.com/growsinofficial/kyc-sub000/pkg/utils"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

// Gateway webhook event types this processor acts on.
const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
)

// WebhookPayload is the gateway's push notification body.
type WebhookPayload struct {
	EventType     string `json:"event_type"`
	PaymentID     string `json:"payment_id,omitempty"`
	HostedPageID  string `json:"hostedpage_id,omitempty"`
	Status        string `json:"status,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// IWebhookService is the gateway-driven confirmation path. It races the
// verification service by design; both finalize through the same conditional
// store write, so double completion cannot happen.
type IWebhookService interface {
	// ProcessEvent verifies the signature over the exact raw bytes, records
	// the event durably, and dispatches it. utils.ErrInvalidSignature means
	// the caller must answer 401; any nil return must be answered 200.
	ProcessEvent(ctx context.Context, rawBody []byte, signature string) error
}

type webhookService struct {
	secret         []byte
	txnRepo        repositories.ITransactionRepository
	eventRepo      repositories.IWebhookEventRepository
	reconciliation IReconciliationService
	log            zerolog.Logger
}

func NewWebhookService(
	secret string,
	txnRepo repositories.ITransactionRepository,
	eventRepo repositories.IWebhookEventRepository,
	reconciliation IReconciliationService,
	log zerolog.Logger,
) IWebhookService {
	return &webhookService{
		secret:         []byte(secret),
		txnRepo:        txnRepo,
		eventRepo:      eventRepo,
		reconciliation: reconciliation,
		log:            log,
	}
}

// verifySignature computes the HMAC over the raw body bytes the gateway sent.
// Re-serializing the JSON first would reorder keys and break the digest, so
// the raw bytes must reach this function unmodified.
func (w *webhookService) verifySignature(rawBody []byte, signature string) bool {
	mac := hmac.New(sha256.New, w.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (w *webhookService) ProcessEvent(ctx context.Context, rawBody []byte, signature string) error {
	if !w.verifySignature(rawBody, signature) {
		w.log.Warn().Str("signature", signature).Msg("webhook signature mismatch")
		return utils.ErrInvalidSignature
	}

	var payload WebhookPayload
	parseable := json.Unmarshal(rawBody, &payload) == nil

	digest := sha256.Sum256(rawBody)
	event := &db_models.WebhookEvent{
		Digest:         hex.EncodeToString(digest[:]),
		EventType:      payload.EventType,
		Payload:        datatypes.JSON(rawBody),
		SignatureValid: true,
	}
	created, err := w.eventRepo.Insert(ctx, event)
	if err != nil {
		return err
	}
	if !created {
		// gateways may deliver the same event more than once; the first
		// delivery already did the work
		w.log.Info().Str("event_type", payload.EventType).Msg("duplicate webhook delivery, acknowledging")
		return nil
	}

	if !parseable {
		w.log.Warn().Msg("webhook body verified but unparseable, acknowledging")
		return nil
	}

	switch payload.EventType {
	case EventPaymentSucceeded:
		w.handleSucceeded(ctx, payload)
	case EventPaymentFailed:
		w.handleFailed(ctx, payload)
	default:
		// acknowledged so the gateway does not retry-storm events we
		// intentionally ignore
		w.log.Info().Str("event_type", payload.EventType).Msg("ignoring unrecognized webhook event")
	}

	if err := w.eventRepo.MarkProcessed(ctx, event.Digest, time.Now()); err != nil {
		w.log.Warn().Err(err).Msg("failed to mark webhook event processed")
	}
	return nil
}

func (w *webhookService) handleSucceeded(ctx context.Context, payload WebhookPayload) {
	txn, err := w.txnRepo.GetByGatewayOrderID(ctx, payload.HostedPageID)
	if err != nil {
		w.log.Error().Err(err).Str("hostedpage_id", payload.HostedPageID).Msg("webhook transaction lookup failed")
		return
	}
	if txn == nil {
		w.log.Warn().Str("hostedpage_id", payload.HostedPageID).Msg("webhook for unknown order, acknowledging")
		return
	}

	if err := w.txnRepo.SetWebhookFlags(ctx, txn.TransactionID, true); err != nil {
		w.log.Warn().Err(err).Str("transaction_id", txn.TransactionID).Msg("webhook flags update failed")
	}

	if txn.Status == db_models.TxnStatusCompleted {
		// verification beat us to it
		return
	}

	won, err := w.txnRepo.MarkCompleted(ctx, txn.TransactionID, payload.PaymentID, "", time.Now())
	if err != nil {
		w.log.Error().Err(err).Str("transaction_id", txn.TransactionID).Msg("webhook finalize failed")
		return
	}
	if won {
		w.reconciliation.Enqueue(txn.TransactionID)
	}
}

func (w *webhookService) handleFailed(ctx context.Context, payload WebhookPayload) {
	txn, err := w.txnRepo.GetByGatewayOrderID(ctx, payload.HostedPageID)
	if err != nil || txn == nil {
		w.log.Warn().Err(err).Str("hostedpage_id", payload.HostedPageID).Msg("failed-payment webhook for unknown order")
		return
	}

	if err := w.txnRepo.SetWebhookFlags(ctx, txn.TransactionID, true); err != nil {
		w.log.Warn().Err(err).Str("transaction_id", txn.TransactionID).Msg("webhook flags update failed")
	}

	reason := payload.FailureReason
	if reason == "" {
		reason = "payment failed at gateway"
	}
	// retry bookkeeping stays with the retry scheduler; this path only
	// records the failure
	if _, err := w.txnRepo.MarkFailed(ctx, txn.TransactionID, reason, time.Now()); err != nil {
		w.log.Error().Err(err).Str("transaction_id", txn.TransactionID).Msg("webhook mark failed errored")
	}
}
