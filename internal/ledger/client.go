// Package ledger is the narrow interface to the external accounting system:
// customers, invoices, and payment records. The ledger is a bookkeeping
// mirror; its errors never surface to payment callers.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrDuplicateReference is returned when the ledger already holds a payment
// with the given external reference. Callers treat it as proof the payment
// was recorded by a prior attempt.
var ErrDuplicateReference = errors.New("ledger: payment reference already recorded")

type Client interface {
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) // nil when absent
	CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, req CustomerRequest) (*Customer, error)
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)
	EmailInvoice(ctx context.Context, invoiceNumber string) error
	RecordPayment(ctx context.Context, req PaymentRequest) (*PaymentRecord, error)
}

type Customer struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

type CustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type InvoiceRequest struct {
	CustomerID  string `json:"customer_id"`
	Description string `json:"description"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"` // our transaction id
}

type Invoice struct {
	InvoiceNumber string `json:"invoice_number"`
}

type PaymentRequest struct {
	CustomerID    string `json:"customer_id"`
	InvoiceNumber string `json:"invoice_number"`
	AmountMinor   int64  `json:"amount"`
	Reference     string `json:"reference"` // gateway payment id, the dedup key
}

type PaymentRecord struct {
	PaymentID string `json:"payment_id"`
}

type Config struct {
	BaseURL     string
	AuthToken   string
	OrgID       string
	HTTPTimeout time.Duration
}

type httpClient struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

func NewHTTPClient(cfg Config, log zerolog.Logger) Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		log:    log,
	}
}

func (c *httpClient) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	var result struct {
		Customers []Customer `json:"customers"`
	}
	path := "/v1/customers?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	if len(result.Customers) == 0 {
		return nil, nil
	}
	return &result.Customers[0], nil
}

func (c *httpClient) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *httpClient) UpdateCustomer(ctx context.Context, customerID string, req CustomerRequest) (*Customer, error) {
	var customer Customer
	path := "/v1/customers/" + customerID
	if err := c.do(ctx, http.MethodPut, path, req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *httpClient) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/v1/invoices", req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *httpClient) EmailInvoice(ctx context.Context, invoiceNumber string) error {
	path := fmt.Sprintf("/v1/invoices/%s/email", invoiceNumber)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *httpClient) RecordPayment(ctx context.Context, req PaymentRequest) (*PaymentRecord, error) {
	var record PaymentRecord
	if err := c.do(ctx, http.MethodPost, "/v1/payments", req, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode ledger request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	if c.cfg.OrgID != "" {
		req.Header.Set("X-Organization-Id", c.cfg.OrgID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	// The ledger rejects a payment whose reference it has already seen with
	// 409; that is the dedup signal, not a failure.
	if resp.StatusCode == http.StatusConflict {
		io.Copy(io.Discard, resp.Body)
		return ErrDuplicateReference
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("ledger returned non-2xx")
		return fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode ledger response: %w", err)
		}
	}
	return nil
}
