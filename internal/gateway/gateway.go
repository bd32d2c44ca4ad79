package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"montshop-terminal/internal/domain"
)

// Gateway is the HTTP client for the remote Montshop backend. All calls
// are read-only except PayBulk; batch atomicity is entirely the
// backend's.
type Gateway struct {
	baseURL string
	token   string
	client  *http.Client
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func New(cfg Config) *Gateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}
}

// envelope is the backend's JSON response wrapper.
type envelope struct {
	ErrorCode int             `json:"error_code"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

// CustomerDebtSummary fetches a customer's aggregate debt and installment
// list. An empty customerID disables the loader and returns an empty
// summary without a network call. A failed fetch returns an error, never
// a silently empty summary.
func (g *Gateway) CustomerDebtSummary(ctx context.Context, customerID string) (domain.CustomerDebtSummary, error) {
	var summary domain.CustomerDebtSummary
	if customerID == "" {
		return summary, nil
	}
	path := fmt.Sprintf("/installment/customer/%s/summary", url.PathEscape(customerID))
	if err := g.get(ctx, path, &summary); err != nil {
		return domain.CustomerDebtSummary{}, fmt.Errorf("debt summary for customer %s: %w", customerID, err)
	}
	return summary, nil
}

// PayBulk submits a payment batch. The call is a single atomic request;
// on error nothing is assumed to have been applied.
func (g *Gateway) PayBulk(ctx context.Context, customerID string, batch domain.PaymentBatch) (domain.PaymentResult, error) {
	var result domain.PaymentResult
	path := fmt.Sprintf("/installment/customer/%s/pay/bulk", url.PathEscape(customerID))
	if err := g.post(ctx, path, batch, &result); err != nil {
		return domain.PaymentResult{}, err
	}
	return result, nil
}

// Installment fetches one installment with its sale items for the
// product drill-down.
func (g *Gateway) Installment(ctx context.Context, installmentID string) (domain.InstallmentDetail, error) {
	var detail domain.InstallmentDetail
	path := fmt.Sprintf("/installment/%s", url.PathEscape(installmentID))
	if err := g.get(ctx, path, &detail); err != nil {
		return domain.InstallmentDetail{}, err
	}
	return detail, nil
}

// MyCompany fetches the issuer information used on printed receipts.
func (g *Gateway) MyCompany(ctx context.Context) (domain.Company, error) {
	var company domain.Company
	if err := g.get(ctx, "/company/my-company", &company); err != nil {
		return domain.Company{}, err
	}
	return company, nil
}

func (g *Gateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *Gateway) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *Gateway) do(req *http.Request, out any) error {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("backend returned status %d with unparseable body", resp.StatusCode)
	}

	if resp.StatusCode >= 400 || env.Status == "error" {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Code: env.ErrorCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// APIError is a non-transport failure reported by the backend.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
}
