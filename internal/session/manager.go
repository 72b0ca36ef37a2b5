package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/avoronov/finsession/internal/apperrors"
	"github.com/avoronov/finsession/internal/logger"
	"github.com/avoronov/finsession/internal/models"
	"github.com/avoronov/finsession/internal/tokenstore"
)

var validate = validator.New()

// IdentityClient submits OAuth2 grants to the identity endpoint
type IdentityClient interface {
	PasswordGrant(ctx context.Context, username string, password string) (models.TokenResponse, error)
	RefreshGrant(ctx context.Context, refreshToken string) (models.TokenResponse, error)
}

type Config struct {
	// Client for the identity endpoint. Required
	Identity IdentityClient

	// Durable storage for the session record. Required
	Store tokenstore.Store

	// Logger, no-op if not set
	Logger logger.Logger

	// Clock override for tests
	Now func() time.Time

	// OnLoginRequired is the navigation signal: called after logout and
	// after an unrecoverable refresh failure, with the URL to return to
	// once login succeeds (may be empty)
	OnLoginRequired func(returnURL string)
}

// Manager is the single source of truth for authentication. It is the only
// component that mutates the session State or the token Store, which keeps
// the two consistent without any wider locking discipline.
type Manager struct {
	identity        IdentityClient
	store           tokenstore.Store
	state           *State
	logger          logger.Logger
	now             func() time.Time
	onLoginRequired func(string)

	// mu serializes every store+state mutation so the persisted record and
	// the in-memory snapshot always change as one unit
	mu sync.Mutex
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Identity == nil {
		return nil, errors.New("identity client must not be nil")
	}
	if cfg.Store == nil {
		return nil, errors.New("token store must not be nil")
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.OnLoginRequired == nil {
		cfg.OnLoginRequired = func(string) {}
	}

	return &Manager{
		identity:        cfg.Identity,
		store:           cfg.Store,
		state:           NewState(),
		logger:          cfg.Logger,
		now:             cfg.Now,
		onLoginRequired: cfg.OnLoginRequired,
	}, nil
}

// State returns the read-only observable session state
func (m *Manager) State() *State {
	return m.state
}

// Initialize restores the session from the store on process start. It is an
// optimistic restore: no network call is made, validity is checked lazily on
// first use.
func (m *Manager) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := tokenstore.Load(m.store)
	if record.AccessToken == "" || record.User == nil {
		return
	}

	m.state.set(record.User, record.AccessToken)
	m.logger.Debug("Session restored from store", "username", record.User.Username)
}

// Login submits a password grant. On success the tokens and user are
// persisted and the state becomes authenticated atomically. On failure
// nothing is written and the state stays as it was, the caller decides what
// to show.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) (models.TokenResponse, error) {
	if err := validate.Struct(creds); err != nil {
		return models.TokenResponse{}, fmt.Errorf("%w. Err: %v", apperrors.ErrInvalidCredentials, err)
	}

	resp, err := m.identity.PasswordGrant(ctx, creds.Username, creds.Password)
	if err != nil {
		m.logger.Warn("Login failed", "username", creds.Username, "error", err)
		return models.TokenResponse{}, err
	}

	user := &models.AuthUser{Username: creds.Username}

	m.mu.Lock()
	defer m.mu.Unlock()

	err = tokenstore.Save(m.store, tokenstore.Record{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         user,
	})
	if err != nil {
		return models.TokenResponse{}, fmt.Errorf("error while persisting session. Err: %w", err)
	}

	m.state.set(user, resp.AccessToken)
	m.logger.Info("Logged in", "username", creds.Username)

	return resp, nil
}

// Logout clears the store and the state, then signals navigation to the
// login entry point. Idempotent: a second call changes nothing beyond
// repeating the signal.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.clearSession()
	m.mu.Unlock()

	m.onLoginRequired("")
}

// Refresh exchanges the stored refresh token for a new access token.
//
// A transport failure leaves the session untouched: a network blip must not
// log the user out. A rejection by the identity endpoint is terminal: the
// session is torn down before the error is returned, cause a rejected
// refresh token can never succeed on retry.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	refresh, ok := m.store.Get(tokenstore.KeyRefreshToken)
	if !ok || refresh == "" {
		return "", apperrors.ErrNoRefreshToken
	}

	resp, err := m.identity.RefreshGrant(ctx, refresh)
	if err != nil {
		if errors.Is(err, apperrors.ErrNetworkUnavailable) {
			return "", err
		}

		m.logger.Warn("Refresh rejected, tearing session down", "error", err)
		m.mu.Lock()
		m.clearSession()
		m.mu.Unlock()
		m.onLoginRequired("")

		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err = tokenstore.Save(m.store, tokenstore.Record{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken, // kept when the server did not rotate
		User:         m.state.User(),
	})
	if err != nil {
		return "", fmt.Errorf("error while persisting refreshed session. Err: %w", err)
	}

	m.state.set(m.state.User(), resp.AccessToken)
	m.logger.Debug("Access token refreshed")

	return resp.AccessToken, nil
}

// AuthToken returns the current in-memory access token, empty if none.
// Pure read, no side effects.
func (m *Manager) AuthToken() string {
	return m.state.AccessToken()
}

// IsTokenExpired reports whether the current access token's exp claim is in
// the past. A missing or undecodable token counts as expired (fail-closed).
func (m *Manager) IsTokenExpired() bool {
	token := m.state.AccessToken()
	if token == "" {
		return true
	}

	exp, hasExp, err := tokenExpiry(token)
	if err != nil {
		m.logger.Debug("Treating undecodable token as expired", "error", err)
		return true
	}
	if !hasExp {
		return false
	}

	return exp.Before(m.now())
}

// EnsureAuthenticated is the route-guard operation: it verifies there is a
// live session, refreshing an expired token first. When no session can be
// established it signals the login redirect with returnURL preserved.
func (m *Manager) EnsureAuthenticated(ctx context.Context, returnURL string) error {
	if !m.state.Authenticated() {
		m.onLoginRequired(returnURL)
		return apperrors.ErrNotAuthenticated
	}

	if !m.IsTokenExpired() {
		return nil
	}

	if _, err := m.Refresh(ctx); err != nil {
		m.onLoginRequired(returnURL)
		return err
	}

	return nil
}

// clearSession wipes store and state as one unit. Callers must hold m.mu.
func (m *Manager) clearSession() {
	if err := tokenstore.Clear(m.store); err != nil {
		m.logger.Error("Failed to clear token store", "error", err)
	}
	m.state.set(nil, "")
}
