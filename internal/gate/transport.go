package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/avoronov/finsession/internal/logger"
)

// sessionManager is the slice of the session manager the gate needs
type sessionManager interface {
	AuthToken() string
	Refresh(ctx context.Context) (string, error)
}

type Config struct {
	// Session supplies tokens and performs the coalesced refresh. Required
	Session sessionManager

	// AuthURL is the identity endpoint. Requests targeting it pass through
	// with no credential attached, otherwise a failing login would try to
	// refresh itself forever
	AuthURL string

	// Base transport, http.DefaultTransport if not set
	Base http.RoundTripper

	Logger logger.Logger
}

// Transport is the outbound interceptor: it attaches the bearer credential
// to every request and, on an authorization failure, runs exactly one
// refresh no matter how many requests fail at the same time, then retries
// each failed request once with the new token.
//
// The Idle/Refreshing state machine from the design is carried by the
// singleflight group: the first 401 starts the refresh, later 401s join it
// and share its result.
type Transport struct {
	session sessionManager
	authURL string
	base    http.RoundTripper
	logger  logger.Logger

	refresh singleflight.Group
}

func New(cfg Config) (*Transport, error) {
	if cfg.Session == nil {
		return nil, errors.New("session manager must not be nil")
	}

	if cfg.Base == nil {
		cfg.Base = http.DefaultTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Transport{
		session: cfg.Session,
		authURL: cfg.AuthURL,
		base:    cfg.Base,
		logger:  cfg.Logger,
	}, nil
}

// Client returns an http.Client riding on this transport
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.isAuthEndpoint(req) {
		return t.base.RoundTrip(req)
	}

	token := t.session.AuthToken()

	resp, err := t.send(req, token)
	if err != nil {
		return nil, err
	}
	if !isAuthFailure(resp.StatusCode) {
		return resp, nil
	}

	// Retrying needs a rewindable body
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	drainAndClose(resp)

	fresh, err := t.coalescedRefresh(req)
	if err != nil {
		return nil, fmt.Errorf("request unauthorized and token refresh failed: %w", err)
	}

	t.logger.Debug("Retrying request with refreshed token", "method", req.Method, "url", req.URL.String())

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}

	// At most one retry. If the server refuses the refreshed token too the
	// answer goes back unmodified, there is no loop to enter.
	return t.send(retry, fresh)
}

// coalescedRefresh funnels every concurrent caller into a single refresh
// call and hands all of them the same resulting token.
func (t *Transport) coalescedRefresh(req *http.Request) (string, error) {
	token, err, shared := t.refresh.Do("refresh", func() (any, error) {
		// A caller going away must not abort the refresh other requests
		// are waiting on
		return t.session.Refresh(context.WithoutCancel(req.Context()))
	})
	if err != nil {
		return "", err
	}

	if shared {
		t.logger.Debug("Joined in-flight token refresh")
	}

	return token.(string), nil
}

func (t *Transport) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	if out.Header.Get("X-Request-Id") == "" {
		out.Header.Set("X-Request-Id", uuid.NewString())
	}

	return t.base.RoundTrip(out)
}

func (t *Transport) isAuthEndpoint(req *http.Request) bool {
	return t.authURL != "" && strings.HasPrefix(req.URL.String(), t.authURL)
}

func isAuthFailure(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// rewind rebuilds the request body so the request can be sent again
func rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil {
		return retry, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body for retry: %w", err)
	}
	retry.Body = body

	return retry, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
