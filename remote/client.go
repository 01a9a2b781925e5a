/*
Package remote implements session.Remote over the ledger service's HTTP API.

ENDPOINTS USED:
  GET  /api/debts/{id}           -> collection.DebtDetail
  GET  /api/products/{code}      -> collection.Product
  POST /api/debts/{id}/periods   -> collection.SubmitResult

ERROR MAPPING:
  404                 -> collection.ErrNotFound
  transport failure   -> *session.NetworkError
  other non-2xx       -> *session.NetworkError carrying the service's message

Cancellation follows the caller's context.
*/
package remote

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

	"github.com/google/uuid"

	"github.com/warp/collection-ledger/collection"
	"github.com/warp/collection-ledger/session"
)

// Client talks to one ledger service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client. A zero timeout means no client-side timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

var _ session.Remote = (*Client)(nil)

func (c *Client) FetchDebtDetail(ctx context.Context, id string) (collection.DebtDetail, error) {
	var detail collection.DebtDetail
	err := c.do(ctx, "fetch debt", http.MethodGet, "/api/debts/"+url.PathEscape(id), nil, &detail)
	return detail, err
}

func (c *Client) FetchProduct(ctx context.Context, codeOrID string) (collection.Product, error) {
	var p collection.Product
	err := c.do(ctx, "fetch product", http.MethodGet, "/api/products/"+url.PathEscape(codeOrID), nil, &p)
	return p, err
}

func (c *Client) SubmitPeriodUpdate(ctx context.Context, id string, req collection.SyncRequest) (collection.SubmitResult, error) {
	var result collection.SubmitResult
	err := c.do(ctx, "submit period update", http.MethodPost, "/api/debts/"+url.PathEscape(id)+"/periods", req, &result)
	return result, err
}

// errorBody mirrors api.ErrorResponse.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &session.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, collection.ErrNotFound)
	}
	// The service answers a refused update with 422 and a SubmitResult body.
	if result, ok := out.(*collection.SubmitResult); ok && resp.StatusCode == http.StatusUnprocessableEntity {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &session.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		msg := eb.Error
		if eb.Details != "" {
			msg += ": " + eb.Details
		}
		return &session.NetworkError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &session.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
