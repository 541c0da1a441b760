package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/growsinofficial/kyc-sub000/internal/gateway"
	"github.com/growsinofficial/kyc-sub000/internal/ledger"
	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
)

// fakeTxnRepo is an in-memory transaction store with the same conditional
// write semantics as the postgres repository.
type fakeTxnRepo struct {
	mu      sync.Mutex
	txns    map[string]*db_models.Transaction
	refunds map[string]*db_models.Refund
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{
		txns:    make(map[string]*db_models.Transaction),
		refunds: make(map[string]*db_models.Refund),
	}
}

func (f *fakeTxnRepo) snapshot(txn *db_models.Transaction) *db_models.Transaction {
	cp := *txn
	cp.Refunds = nil
	for _, r := range f.refunds {
		if r.TransactionID == txn.TransactionID {
			rc := *r
			cp.Refunds = append(cp.Refunds, rc)
		}
	}
	return &cp
}

func (f *fakeTxnRepo) Create(ctx context.Context, txn *db_models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	cp := *txn
	f.txns[txn.TransactionID] = &cp
	return nil
}

func (f *fakeTxnRepo) GetByTransactionID(ctx context.Context, transactionID string) (*db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[transactionID]
	if !ok {
		return nil, nil
	}
	return f.snapshot(txn), nil
}

func (f *fakeTxnRepo) GetByGatewayOrderID(ctx context.Context, orderID string) (*db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.GatewayOrderID == orderID {
			return f.snapshot(txn), nil
		}
	}
	return nil, nil
}

func (f *fakeTxnRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db_models.Transaction
	for _, txn := range f.txns {
		if txn.AccountID == accountID {
			out = append(out, *f.snapshot(txn))
		}
	}
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j].InitiatedAt > out[i].InitiatedAt {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeTxnRepo) SetGatewayOrder(ctx context.Context, transactionID string, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[transactionID]; ok {
		txn.GatewayOrderID = orderID
	}
	return nil
}

func (f *fakeTxnRepo) MarkProcessing(ctx context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[transactionID]; ok && txn.Status == db_models.TxnStatusPending {
		txn.Status = db_models.TxnStatusProcessing
	}
	return nil
}

func statusOpen(s db_models.TransactionStatus) bool {
	switch s {
	case db_models.TxnStatusPending, db_models.TxnStatusProcessing, db_models.TxnStatusFailed:
		return true
	}
	return false
}

func (f *fakeTxnRepo) MarkCompleted(ctx context.Context, transactionID, gatewayPaymentID, gatewayTransactionID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[transactionID]
	if !ok || !statusOpen(txn.Status) {
		return false, nil
	}
	txn.Status = db_models.TxnStatusCompleted
	ts := at.Unix()
	txn.CompletedAt = &ts
	if txn.GatewayPaymentID == "" {
		txn.GatewayPaymentID = gatewayPaymentID
	}
	if txn.GatewayTransactionID == "" {
		txn.GatewayTransactionID = gatewayTransactionID
	}
	txn.FailureReason = ""
	return true, nil
}

func (f *fakeTxnRepo) MarkFailed(ctx context.Context, transactionID, reason string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[transactionID]
	if !ok || !statusOpen(txn.Status) {
		return false, nil
	}
	txn.Status = db_models.TxnStatusFailed
	ts := at.Unix()
	txn.FailedAt = &ts
	txn.FailureReason = reason
	return true, nil
}

func (f *fakeTxnRepo) MarkCancelled(ctx context.Context, transactionID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[transactionID]
	if !ok {
		return false, nil
	}
	if txn.Status != db_models.TxnStatusPending && txn.Status != db_models.TxnStatusProcessing {
		return false, nil
	}
	txn.Status = db_models.TxnStatusCancelled
	ts := at.Unix()
	txn.CancelledAt = &ts
	return true, nil
}

func (f *fakeTxnRepo) SetWebhookFlags(ctx context.Context, transactionID string, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[transactionID]; ok {
		txn.WebhookReceived = true
		txn.WebhookVerified = verified
	}
	return nil
}

func (f *fakeTxnRepo) SetInvoiceNumber(ctx context.Context, transactionID, invoiceNumber string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[transactionID]
	if !ok {
		return "", fmt.Errorf("transaction %s not found", transactionID)
	}
	if txn.InvoiceNumber == "" {
		txn.InvoiceNumber = invoiceNumber
	}
	return txn.InvoiceNumber, nil
}

func (f *fakeTxnRepo) MarkPaymentRecorded(ctx context.Context, transactionID, ledgerPaymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[transactionID]; ok && txn.LedgerPaymentID == "" {
		txn.LedgerPaymentID = ledgerPaymentID
	}
	return nil
}

func (f *fakeTxnRepo) ScheduleRetry(ctx context.Context, transactionID string, retryCount int, nextRetryAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[transactionID]; ok && txn.Status == db_models.TxnStatusFailed {
		txn.RetryCount = retryCount
		ts := nextRetryAt.Unix()
		txn.NextRetryAt = &ts
	}
	return nil
}

func (f *fakeTxnRepo) ClearRetrySchedule(ctx context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn, ok := f.txns[transactionID]; ok {
		txn.NextRetryAt = nil
	}
	return nil
}

func (f *fakeTxnRepo) ListRetryEligible(ctx context.Context, now time.Time, limit int) ([]db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db_models.Transaction
	for _, txn := range f.txns {
		if txn.Status != db_models.TxnStatusFailed {
			continue
		}
		scheduled := txn.NextRetryAt != nil
		if scheduled && *txn.NextRetryAt > now.Unix() {
			continue
		}
		if !scheduled && txn.RetryCount >= txn.MaxRetries {
			continue
		}
		out = append(out, *f.snapshot(txn))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTxnRepo) CreateRefund(ctx context.Context, refund *db_models.Refund) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *refund
	f.refunds[refund.RefundID] = &cp
	return nil
}

func (f *fakeTxnRepo) MarkRefundProcessed(ctx context.Context, refundID, gatewayRefundID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.refunds[refundID]; ok {
		r.Status = db_models.RefundStatusProcessed
		r.GatewayRefundID = gatewayRefundID
		ts := at.Unix()
		r.ProcessedAt = &ts
	}
	return nil
}

func (f *fakeTxnRepo) MarkRefundFailed(ctx context.Context, refundID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.refunds[refundID]; ok {
		r.Status = db_models.RefundStatusFailed
	}
	return nil
}

func (f *fakeTxnRepo) RecomputeRefundStatus(ctx context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[transactionID]
	if !ok {
		return fmt.Errorf("transaction %s not found", transactionID)
	}
	var total int64
	for _, r := range f.refunds {
		if r.TransactionID == transactionID && r.Status == db_models.RefundStatusProcessed {
			total += r.AmountMinor
		}
	}
	switch {
	case total >= txn.AmountMinor && total > 0:
		txn.Status = db_models.TxnStatusRefunded
	case total > 0:
		txn.Status = db_models.TxnStatusPartiallyRefunded
	}
	return nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*db_models.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*db_models.Account)}
}

func (f *fakeAccountRepo) Create(ctx context.Context, account *db_models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountRepo) SetLedgerCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.LedgerCustomerID = customerID
	}
	return nil
}

type fakePlanRepo struct {
	plans map[string]*db_models.Plan
}

func newFakePlanRepo(plans ...*db_models.Plan) *fakePlanRepo {
	f := &fakePlanRepo{plans: make(map[string]*db_models.Plan)}
	for _, p := range plans {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		f.plans[p.ID.String()] = p
	}
	return f
}

func (f *fakePlanRepo) GetPlanByID(ctx context.Context, planID string) (*db_models.Plan, error) {
	if p, ok := f.plans[planID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePlanRepo) GetAllPlans(ctx context.Context) ([]db_models.Plan, error) {
	var out []db_models.Plan
	for _, p := range f.plans {
		out = append(out, *p)
	}
	return out, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*db_models.WebhookEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*db_models.WebhookEvent)}
}

func (f *fakeEventRepo) Insert(ctx context.Context, event *db_models.WebhookEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.Digest]; ok {
		return false, nil
	}
	cp := *event
	f.events[event.Digest] = &cp
	return true, nil
}

func (f *fakeEventRepo) MarkProcessed(ctx context.Context, digest string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[digest]; ok {
		ts := at.Unix()
		e.ProcessedAt = &ts
	}
	return nil
}

// fakeGateway scripts gateway responses per hosted page id.
type fakeGateway struct {
	mu         sync.Mutex
	pages      map[string]*gateway.HostedPageStatus
	createErr  error
	refundErr  error
	statusErr  error
	created    int
	refunds    []gateway.RefundRequest
	nextPageID string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{pages: make(map[string]*gateway.HostedPageStatus), nextPageID: "hp_001"}
}

func (f *fakeGateway) CreateHostedPage(ctx context.Context, req gateway.CreateHostedPageRequest) (*gateway.HostedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	id := f.nextPageID
	f.pages[id] = &gateway.HostedPageStatus{HostedPageID: id, Status: gateway.StatusPending}
	return &gateway.HostedPage{HostedPageID: id, URL: "https://pay.example/" + id}, nil
}

func (f *fakeGateway) GetHostedPage(ctx context.Context, hostedPageID string) (*gateway.HostedPageStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if s, ok := f.pages[hostedPageID]; ok {
		cp := *s
		return &cp, nil
	}
	return &gateway.HostedPageStatus{HostedPageID: hostedPageID, Status: gateway.StatusFailed, FailureReason: "unknown page"}, nil
}

func (f *fakeGateway) CreateRefund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, req)
	return &gateway.RefundResult{RefundID: "grf_" + req.Reference, Status: "processed"}, nil
}

func (f *fakeGateway) setPaid(hostedPageID, paymentID, gatewayTxnID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[hostedPageID] = &gateway.HostedPageStatus{
		HostedPageID:  hostedPageID,
		Status:        gateway.StatusPaid,
		PaymentID:     paymentID,
		TransactionID: gatewayTxnID,
	}
}

func (f *fakeGateway) setFailed(hostedPageID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[hostedPageID] = &gateway.HostedPageStatus{
		HostedPageID:  hostedPageID,
		Status:        gateway.StatusFailed,
		FailureReason: reason,
	}
}

// fakeLedger records ledger calls and dedups payments by reference.
type fakeLedger struct {
	mu           sync.Mutex
	customers    map[string]*ledger.Customer // keyed by email
	invoices     []ledger.InvoiceRequest
	payments     map[string]*ledger.PaymentRecord // keyed by reference
	emailed      []string
	nextInvoice  int
	nextCustomer int
	createInvErr error
	recordPayErr error
	emailErr     error
	findCustErr  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		customers: make(map[string]*ledger.Customer),
		payments:  make(map[string]*ledger.PaymentRecord),
	}
}

func (f *fakeLedger) FindCustomerByEmail(ctx context.Context, email string) (*ledger.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findCustErr != nil {
		return nil, f.findCustErr
	}
	if c, ok := f.customers[email]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeLedger) CreateCustomer(ctx context.Context, req ledger.CustomerRequest) (*ledger.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCustomer++
	c := &ledger.Customer{CustomerID: fmt.Sprintf("cust_%03d", f.nextCustomer), Name: req.Name, Email: req.Email}
	f.customers[req.Email] = c
	cp := *c
	return &cp, nil
}

func (f *fakeLedger) UpdateCustomer(ctx context.Context, customerID string, req ledger.CustomerRequest) (*ledger.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &ledger.Customer{CustomerID: customerID, Name: req.Name, Email: req.Email}
	f.customers[req.Email] = c
	cp := *c
	return &cp, nil
}

func (f *fakeLedger) CreateInvoice(ctx context.Context, req ledger.InvoiceRequest) (*ledger.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createInvErr != nil {
		return nil, f.createInvErr
	}
	f.invoices = append(f.invoices, req)
	f.nextInvoice++
	return &ledger.Invoice{InvoiceNumber: fmt.Sprintf("INV-%05d", f.nextInvoice)}, nil
}

func (f *fakeLedger) EmailInvoice(ctx context.Context, invoiceNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailErr != nil {
		return f.emailErr
	}
	f.emailed = append(f.emailed, invoiceNumber)
	return nil
}

func (f *fakeLedger) RecordPayment(ctx context.Context, req ledger.PaymentRequest) (*ledger.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordPayErr != nil {
		return nil, f.recordPayErr
	}
	if _, ok := f.payments[req.Reference]; ok {
		return nil, ledger.ErrDuplicateReference
	}
	rec := &ledger.PaymentRecord{PaymentID: "pay_" + req.Reference}
	f.payments[req.Reference] = rec
	cp := *rec
	return &cp, nil
}

type fakeMail struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
}

func (f *fakeMail) SendPaymentReceipt(to, name, planName string, amountMinor int64, currency, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, to)
	return nil
}

// fakeReconciler records enqueues without running the pipeline.
type fakeReconciler struct {
	mu       sync.Mutex
	enqueued []string
}

func (f *fakeReconciler) Enqueue(transactionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, transactionID)
}

func (f *fakeReconciler) Process(ctx context.Context, transactionID string) error { return nil }
func (f *fakeReconciler) Start()                                                  {}
func (f *fakeReconciler) Stop()                                                   {}

func (f *fakeReconciler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

type fakeRetry struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *fakeRetry) Schedule(ctx context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, transactionID)
	return nil
}

func (f *fakeRetry) Sweep(ctx context.Context) error { return nil }
func (f *fakeRetry) Start()                          {}
func (f *fakeRetry) Stop()                           {}
