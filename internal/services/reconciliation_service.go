package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/growsinofficial/kyc-sub000/internal/ledger"
	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"github.com/growsinofficial/kyc-sub000/internal/repositories"
	"github.com/rs/zerolog"
)

// IReconciliationService mirrors completed transactions into the external
// accounting system. Enqueue is at-least-once; the pipeline is built so one
// effect per transaction survives any number of invocations.
type IReconciliationService interface {
	Enqueue(transactionID string)
	Process(ctx context.Context, transactionID string) error
	Start()
	Stop()
}

type reconciliationService struct {
	txnRepo     repositories.ITransactionRepository
	accountRepo repositories.IAccountRepository
	planRepo    repositories.IPlanRepository
	ledger      ledger.Client
	mail        IMailService
	log         zerolog.Logger

	jobs    chan string
	stopped chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewReconciliationService(
	txnRepo repositories.ITransactionRepository,
	accountRepo repositories.IAccountRepository,
	planRepo repositories.IPlanRepository,
	ledgerClient ledger.Client,
	mail IMailService,
	log zerolog.Logger,
) IReconciliationService {
	return &reconciliationService{
		txnRepo:     txnRepo,
		accountRepo: accountRepo,
		planRepo:    planRepo,
		ledger:      ledgerClient,
		mail:        mail,
		log:         log,
		jobs:        make(chan string, 256),
		stopped:     make(chan struct{}),
	}
}

// Enqueue hands a completed transaction to the background worker. It never
// blocks the caller: when the buffer is full the job is dropped with a log
// line, since a dropped mirror write only delays bookkeeping, never payment.
func (s *reconciliationService) Enqueue(transactionID string) {
	select {
	case s.jobs <- transactionID:
	default:
		s.log.Error().Str("transaction_id", transactionID).Msg("reconciliation queue full, dropping job")
	}
}

func (s *reconciliationService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stopped:
				return
			case txnID := <-s.jobs:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				if err := s.Process(ctx, txnID); err != nil {
					s.log.Error().Err(err).Str("transaction_id", txnID).Msg("reconciliation failed")
				}
				cancel()
			}
		}
	}()
}

func (s *reconciliationService) Stop() {
	s.once.Do(func() { close(s.stopped) })
	s.wg.Wait()
}

// Process runs the reconciliation pipeline: customer sync, invoice creation,
// invoice delivery, payment recording. Every step is idempotent; re-running
// the pipeline after a partial failure picks up where the markers left off.
func (s *reconciliationService) Process(ctx context.Context, transactionID string) error {
	txn, err := s.txnRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if txn == nil {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	switch txn.Status {
	case db_models.TxnStatusCompleted, db_models.TxnStatusRefunded, db_models.TxnStatusPartiallyRefunded:
	default:
		// only completed money is mirrored
		s.log.Warn().Str("transaction_id", transactionID).Str("status", string(txn.Status)).
			Msg("skipping reconciliation for non-completed transaction")
		return nil
	}

	account, err := s.accountRepo.GetByID(ctx, txn.AccountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", txn.AccountID, err)
	}
	if account == nil {
		return fmt.Errorf("account %s not found", txn.AccountID)
	}
	plan, err := s.planRepo.GetPlanByID(ctx, txn.PlanID.String())
	if err != nil {
		return fmt.Errorf("load plan %s: %w", txn.PlanID, err)
	}
	if plan == nil {
		return fmt.Errorf("plan %s not found", txn.PlanID)
	}

	customerID, err := s.syncCustomer(ctx, account)
	if err != nil {
		return fmt.Errorf("customer sync: %w", err)
	}

	invoiceNumber, err := s.ensureInvoice(ctx, txn, plan, customerID)
	if err != nil {
		return fmt.Errorf("invoice: %w", err)
	}

	// Delivery is best-effort: a bounced email must not block payment
	// recording or touch the transaction's status.
	if err := s.ledger.EmailInvoice(ctx, invoiceNumber); err != nil {
		s.log.Warn().Err(err).Str("invoice_number", invoiceNumber).Msg("invoice email failed")
	}
	if err := s.mail.SendPaymentReceipt(account.Email, account.Name, plan.Name, txn.AmountMinor, txn.Currency, txn.TransactionID); err != nil {
		s.log.Warn().Err(err).Str("transaction_id", txn.TransactionID).Msg("receipt email failed")
	}

	if err := s.recordPayment(ctx, txn, customerID, invoiceNumber); err != nil {
		return fmt.Errorf("payment record: %w", err)
	}
	return nil
}

func (s *reconciliationService) syncCustomer(ctx context.Context, account *db_models.Account) (string, error) {
	if account.LedgerCustomerID != "" {
		return account.LedgerCustomerID, nil
	}

	req := ledger.CustomerRequest{Name: account.Name, Email: account.Email}
	customer, err := s.ledger.FindCustomerByEmail(ctx, account.Email)
	if err != nil {
		return "", err
	}
	if customer == nil {
		customer, err = s.ledger.CreateCustomer(ctx, req)
	} else {
		customer, err = s.ledger.UpdateCustomer(ctx, customer.CustomerID, req)
	}
	if err != nil {
		return "", err
	}

	if err := s.accountRepo.SetLedgerCustomerID(ctx, account.ID, customer.CustomerID); err != nil {
		return "", err
	}
	account.LedgerCustomerID = customer.CustomerID
	return customer.CustomerID, nil
}

func (s *reconciliationService) ensureInvoice(ctx context.Context, txn *db_models.Transaction, plan *db_models.Plan, customerID string) (string, error) {
	// A transaction that already carries an invoice number never gets a new
	// invoice, full stop.
	if txn.InvoiceNumber != "" {
		return txn.InvoiceNumber, nil
	}

	invoice, err := s.ledger.CreateInvoice(ctx, ledger.InvoiceRequest{
		CustomerID:  customerID,
		Description: plan.Name,
		AmountMinor: txn.AmountMinor,
		Currency:    txn.Currency,
		Reference:   txn.TransactionID,
	})
	if err != nil {
		return "", err
	}

	// The write-once persist must land before any later step so a crash here
	// cannot mint a second invoice on the next run.
	stored, err := s.txnRepo.SetInvoiceNumber(ctx, txn.TransactionID, invoice.InvoiceNumber)
	if err != nil {
		return "", err
	}
	if stored != invoice.InvoiceNumber {
		s.log.Warn().Str("transaction_id", txn.TransactionID).
			Str("created", invoice.InvoiceNumber).Str("stored", stored).
			Msg("lost invoice-number race, using stored invoice")
	}
	txn.InvoiceNumber = stored
	return stored, nil
}

func (s *reconciliationService) recordPayment(ctx context.Context, txn *db_models.Transaction, customerID, invoiceNumber string) error {
	if txn.LedgerPaymentID != "" {
		return nil
	}

	reference := txn.GatewayPaymentID
	if reference == "" {
		reference = txn.TransactionID
	}

	record, err := s.ledger.RecordPayment(ctx, ledger.PaymentRequest{
		CustomerID:    customerID,
		InvoiceNumber: invoiceNumber,
		AmountMinor:   txn.AmountMinor,
		Reference:     reference,
	})
	if errors.Is(err, ledger.ErrDuplicateReference) {
		// a prior attempt got through but the local marker write was lost;
		// the reference proves the money is recorded exactly once
		return s.txnRepo.MarkPaymentRecorded(ctx, txn.TransactionID, reference)
	}
	if err != nil {
		return err
	}
	return s.txnRepo.MarkPaymentRecorded(ctx, txn.TransactionID, record.PaymentID)
}
