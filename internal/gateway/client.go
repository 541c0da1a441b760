// Package gateway is the narrow interface to the external payment gateway:
// hosted checkout pages, authoritative payment status, and refunds. The wire
// format is the gateway's own; nothing here is designed, only consumed.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Payment statuses the gateway reports for a hosted page.
const (
	StatusPaid    = "paid"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

type Client interface {
	CreateHostedPage(ctx context.Context, req CreateHostedPageRequest) (*HostedPage, error)
	GetHostedPage(ctx context.Context, hostedPageID string) (*HostedPageStatus, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type CreateHostedPageRequest struct {
	Reference   string `json:"reference"` // our transaction id
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	CustomerRef string `json:"customer_ref"`
	Method      string `json:"payment_method,omitempty"`
}

type HostedPage struct {
	HostedPageID string `json:"hostedpage_id"`
	URL          string `json:"url"`
}

type HostedPageStatus struct {
	HostedPageID  string `json:"hostedpage_id"`
	Status        string `json:"status"` // paid | pending | failed
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"` // gateway-side transaction ref
	FailureReason string `json:"failure_reason,omitempty"`
}

type RefundRequest struct {
	PaymentID   string `json:"payment_id"`
	AmountMinor int64  `json:"amount"`
	Reason      string `json:"reason"`
	Reference   string `json:"reference"` // our refund id
}

type RefundResult struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
}

type Config struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	HTTPTimeout   time.Duration
}

type httpClient struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

// NewHTTPClient builds the production gateway client. The request timeout is
// mandatory: the gateway is an untrusted-latency dependency and a hung call
// must not pin a worker.
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

func (c *httpClient) CreateHostedPage(ctx context.Context, req CreateHostedPageRequest) (*HostedPage, error) {
	var page HostedPage
	if err := c.do(ctx, http.MethodPost, "/v1/hostedpages", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *httpClient) GetHostedPage(ctx context.Context, hostedPageID string) (*HostedPageStatus, error) {
	var status HostedPageStatus
	path := fmt.Sprintf("/v1/hostedpages/%s", hostedPageID)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *httpClient) CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	var result RefundResult
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("gateway returned non-2xx")
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}
