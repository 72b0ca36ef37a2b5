package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/avoronov/finsession/internal/apperrors"
	"github.com/avoronov/finsession/internal/logger"
	"github.com/avoronov/finsession/internal/models"
)

const defaultTimeout = 10 * time.Second

var validate = validator.New()

type Config struct {
	// AuthURL is the identity endpoint token URL. Required
	AuthURL string

	// OAuth2 client identifier and secret sent with every grant
	ClientID     string
	ClientSecret string

	// HTTPClient override, plain http.Client if not set. The identity
	// client must never ride on the gated transport: the gate skips this
	// endpoint exactly to avoid recursive auth loops
	HTTPClient *http.Client

	Logger logger.Logger
}

// Client submits form-encoded OAuth2 grants to the identity endpoint
type Client struct {
	authURL      string
	clientID     string
	clientSecret string

	client *http.Client
	logger logger.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("auth URL must not be empty")
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Client{
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       cfg.HTTPClient,
		logger:       cfg.Logger,
	}, nil
}

// AuthURL returns the token endpoint this client talks to
func (c *Client) AuthURL() string {
	return c.authURL
}

// PasswordGrant exchanges username and password for a token pair.
// A 4xx answer means the credentials were rejected, not that the call broke.
func (c *Client) PasswordGrant(ctx context.Context, username string, password string) (models.TokenResponse, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}

	return c.grant(ctx, form)
}

// RefreshGrant exchanges a refresh token for a fresh token pair.
// Any non-2xx answer maps to ErrRefreshRejected: a rejected refresh token
// will not be accepted on retry either.
func (c *Client) RefreshGrant(ctx context.Context, refreshToken string) (models.TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	resp, err := c.grant(ctx, form)
	if err != nil {
		var rejected *GrantError
		if errors.As(err, &rejected) {
			return resp, fmt.Errorf("%w. Err: %v", apperrors.ErrRefreshRejected, err)
		}
		return resp, err
	}

	return resp, nil
}

// GrantError is a non-2xx answer from the identity endpoint
type GrantError struct {
	StatusCode int
	Body       string
}

func (e *GrantError) Error() string {
	return fmt.Sprintf("identity endpoint returned %d: %s", e.StatusCode, e.Body)
}

func (e *GrantError) Unwrap() error {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return apperrors.ErrInvalidCredentials
	}
	return nil
}

func (c *Client) grant(ctx context.Context, form url.Values) (models.TokenResponse, error) {
	var token models.TokenResponse

	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return token, fmt.Errorf("failed to create grant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return token, fmt.Errorf("%w. Err: %v", apperrors.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Grant rejected", "status_code", resp.StatusCode, "grant_type", form.Get("grant_type"))
		return token, &GrantError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return token, fmt.Errorf("failed to decode token response: %w", err)
	}

	// Boundary validation: a 2xx answer without the required fields is as
	// useless as a rejection
	if err := validate.Struct(token); err != nil {
		return token, fmt.Errorf("invalid token response: %w", err)
	}

	return token, nil
}
