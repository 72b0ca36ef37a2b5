package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/avoronov/finsession/internal/apperrors"
	"github.com/avoronov/finsession/internal/logger"
)

// Client is the thin JSON layer every typed wrapper rides on. It expects an
// http.Client whose transport already handles credentials and retry, so the
// wrappers stay presentational: build the path, decode the answer.
type Client struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

func NewClient(baseURL string, httpClient *http.Client, l logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		logger:  l,
	}
}

// Accounts returns the accounts wrapper
func (c *Client) Accounts() *AccountsAPI {
	return &AccountsAPI{client: c}
}

// Transactions returns the transactions wrapper
func (c *Client) Transactions() *TransactionsAPI {
	return &TransactionsAPI{client: c}
}

// Budget returns the budget wrapper
func (c *Client) Budget() *BudgetAPI {
	return &BudgetAPI{client: c}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, in, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, in any, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// The gate surfaces a failed coalesced refresh as a transport error,
		// keep its kind distinguishable from a plain network blip
		if errors.Is(err, apperrors.ErrRefreshRejected) || errors.Is(err, apperrors.ErrNoRefreshToken) {
			return fmt.Errorf("%w. Err: %v", apperrors.ErrUnauthorized, err)
		}
		return fmt.Errorf("%w. Err: %v", apperrors.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// The gate already retried once with a refreshed token
		return fmt.Errorf("%w (status %d)", apperrors.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.Warn("Gateway request failed", "method", method, "path", path, "status_code", resp.StatusCode)
		return fmt.Errorf("gateway returned status %d for %s %s", resp.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
