package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/finsession/internal/apperrors"
	"github.com/avoronov/finsession/internal/models"
	"github.com/avoronov/finsession/internal/tokenstore"
)

// fake identity endpoint, counts calls
type fakeIdentity struct {
	passwordFn func(username string, password string) (models.TokenResponse, error)
	refreshFn  func(refreshToken string) (models.TokenResponse, error)

	passwordCalls atomic.Int64
	refreshCalls  atomic.Int64
}

func (f *fakeIdentity) PasswordGrant(_ context.Context, username string, password string) (models.TokenResponse, error) {
	f.passwordCalls.Add(1)
	return f.passwordFn(username, password)
}

func (f *fakeIdentity) RefreshGrant(_ context.Context, refreshToken string) (models.TokenResponse, error) {
	f.refreshCalls.Add(1)
	return f.refreshFn(refreshToken)
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err, "test token should sign without errors")

	return signed
}

func okIdentity(t *testing.T) *fakeIdentity {
	access := signedToken(t, time.Now().Add(15*time.Minute))
	return &fakeIdentity{
		passwordFn: func(username, password string) (models.TokenResponse, error) {
			if password != "good-password" {
				return models.TokenResponse{}, apperrors.ErrInvalidCredentials
			}
			return models.TokenResponse{
				AccessToken:  access,
				TokenType:    "Bearer",
				ExpiresIn:    900,
				RefreshToken: "refresh-1",
			}, nil
		},
		refreshFn: func(refreshToken string) (models.TokenResponse, error) {
			// Longer TTL than the login token so the two never collide
			return models.TokenResponse{
				AccessToken:  signedToken(t, time.Now().Add(30*time.Minute)),
				TokenType:    "Bearer",
				ExpiresIn:    900,
				RefreshToken: "refresh-2",
			}, nil
		},
	}
}

func newManager(t *testing.T, identity IdentityClient, store tokenstore.Store, onLogin func(string)) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		Identity:        identity,
		Store:           store,
		OnLoginRequired: onLogin,
	})
	require.NoError(t, err, "manager should be created without errors")

	return m
}

func TestManager_Login(t *testing.T) {
	creds := models.Credentials{Username: "alice", Password: "good-password"}

	t.Run("success sets state and store", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		m := newManager(t, okIdentity(t), store, nil)

		resp, err := m.Login(context.Background(), creds)

		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)

		assert.True(t, m.State().Authenticated())
		assert.Equal(t, resp.AccessToken, m.AuthToken())
		require.NotNil(t, m.State().User())
		assert.Equal(t, "alice", m.State().User().Username)

		record := tokenstore.Load(store)
		assert.Equal(t, resp.AccessToken, record.AccessToken)
		assert.Equal(t, "refresh-1", record.RefreshToken)
		require.NotNil(t, record.User)
		assert.Equal(t, "alice", record.User.Username)
	})

	t.Run("invalid credentials leave everything untouched", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		m := newManager(t, okIdentity(t), store, nil)

		_, err := m.Login(context.Background(), models.Credentials{Username: "alice", Password: "bad"})

		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		assert.False(t, m.State().Authenticated())
		assert.Empty(t, m.AuthToken())

		record := tokenstore.Load(store)
		assert.Empty(t, record.AccessToken, "store must stay unchanged on login failure")
		assert.Empty(t, record.RefreshToken)
		assert.Nil(t, record.User)
	})

	t.Run("empty credentials rejected before the network", func(t *testing.T) {
		identity := okIdentity(t)
		m := newManager(t, identity, tokenstore.NewMemoryStore(), nil)

		_, err := m.Login(context.Background(), models.Credentials{Username: "alice"})

		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		require.Zero(t, identity.passwordCalls.Load(), "no grant should be submitted")
	})
}

func TestManager_Initialize(t *testing.T) {
	t.Run("restores stored session without network", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		identity := okIdentity(t)

		// First process: login
		first := newManager(t, identity, store, nil)
		_, err := first.Login(context.Background(), models.Credentials{Username: "alice", Password: "good-password"})
		require.NoError(t, err)
		token := first.AuthToken()

		// Second process: restore from the same store
		identity.passwordCalls.Store(0)
		second := newManager(t, identity, store, nil)
		second.Initialize()

		assert.True(t, second.State().Authenticated())
		assert.Equal(t, token, second.AuthToken())
		require.NotNil(t, second.State().User())
		assert.Equal(t, "alice", second.State().User().Username)

		assert.Zero(t, identity.passwordCalls.Load(), "restore must not call the identity endpoint")
		assert.Zero(t, identity.refreshCalls.Load(), "restore must not call the identity endpoint")
	})

	t.Run("partial record stays unauthenticated", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		require.NoError(t, store.Set(tokenstore.KeyAccessToken, "only-a-token"))

		m := newManager(t, okIdentity(t), store, nil)
		m.Initialize()

		assert.False(t, m.State().Authenticated(), "token without user must not authenticate")
	})
}

func TestManager_Logout(t *testing.T) {
	t.Run("clears store and state and signals", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		signals := 0
		m := newManager(t, okIdentity(t), store, func(string) { signals++ })

		_, err := m.Login(context.Background(), models.Credentials{Username: "alice", Password: "good-password"})
		require.NoError(t, err)

		m.Logout()

		assert.False(t, m.State().Authenticated())
		assert.Empty(t, m.AuthToken())
		record := tokenstore.Load(store)
		assert.Empty(t, record.AccessToken)
		assert.Empty(t, record.RefreshToken)
		assert.Nil(t, record.User)
		assert.Equal(t, 1, signals)
	})

	t.Run("idempotent", func(t *testing.T) {
		signals := 0
		m := newManager(t, okIdentity(t), tokenstore.NewMemoryStore(), func(string) { signals++ })

		_, err := m.Login(context.Background(), models.Credentials{Username: "alice", Password: "good-password"})
		require.NoError(t, err)

		m.Logout()
		first := m.State().Current()

		m.Logout()
		second := m.State().Current()

		assert.Equal(t, first, second, "second logout must not change the end state")
		assert.Equal(t, 2, signals, "the navigation signal repeats, nothing else does")
	})
}

func TestManager_Refresh(t *testing.T) {
	login := func(t *testing.T, m *Manager) string {
		_, err := m.Login(context.Background(), models.Credentials{Username: "alice", Password: "good-password"})
		require.NoError(t, err)
		return m.AuthToken()
	}

	t.Run("success replaces tokens in state and store", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		m := newManager(t, okIdentity(t), store, nil)
		old := login(t, m)

		fresh, err := m.Refresh(context.Background())

		require.NoError(t, err)
		assert.NotEqual(t, old, fresh, "a new access token must be issued")
		assert.Equal(t, fresh, m.AuthToken(), "only the new token is current")

		record := tokenstore.Load(store)
		assert.Equal(t, fresh, record.AccessToken)
		assert.Equal(t, "refresh-2", record.RefreshToken, "rotated refresh token must be stored")
		require.NotNil(t, record.User, "user must survive a refresh")
	})

	t.Run("no refresh token fails immediately", func(t *testing.T) {
		identity := okIdentity(t)
		m := newManager(t, identity, tokenstore.NewMemoryStore(), nil)

		_, err := m.Refresh(context.Background())

		require.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
		require.Zero(t, identity.refreshCalls.Load())
	})

	t.Run("rejection tears the session down", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		identity := okIdentity(t)
		signals := 0
		m := newManager(t, identity, store, func(string) { signals++ })
		login(t, m)

		identity.refreshFn = func(string) (models.TokenResponse, error) {
			return models.TokenResponse{}, apperrors.ErrRefreshRejected
		}

		_, err := m.Refresh(context.Background())

		require.ErrorIs(t, err, apperrors.ErrRefreshRejected)
		assert.False(t, m.State().Authenticated())
		assert.Equal(t, 1, signals, "teardown must signal the login redirect")

		record := tokenstore.Load(store)
		assert.Empty(t, record.AccessToken, "full teardown")
		assert.Empty(t, record.RefreshToken, "full teardown")
		assert.Nil(t, record.User, "full teardown")
	})

	t.Run("network failure leaves session alone", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		identity := okIdentity(t)
		m := newManager(t, identity, store, nil)
		old := login(t, m)

		identity.refreshFn = func(string) (models.TokenResponse, error) {
			return models.TokenResponse{}, apperrors.ErrNetworkUnavailable
		}

		_, err := m.Refresh(context.Background())

		require.ErrorIs(t, err, apperrors.ErrNetworkUnavailable)
		assert.True(t, m.State().Authenticated(), "a blip must not log the user out")
		assert.Equal(t, old, m.AuthToken())
		assert.Equal(t, "refresh-1", tokenstore.Load(store).RefreshToken)
	})
}

func TestManager_IsTokenExpired(t *testing.T) {
	withToken := func(t *testing.T, token string) *Manager {
		store := tokenstore.NewMemoryStore()
		require.NoError(t, tokenstore.Save(store, tokenstore.Record{
			AccessToken: token,
			User:        &models.AuthUser{Username: "alice"},
		}))

		m := newManager(t, okIdentity(t), store, nil)
		m.Initialize()
		return m
	}

	t.Run("future exp is not expired", func(t *testing.T) {
		m := withToken(t, signedToken(t, time.Now().Add(time.Hour)))
		require.False(t, m.IsTokenExpired())
	})

	t.Run("past exp is expired", func(t *testing.T) {
		m := withToken(t, signedToken(t, time.Now().Add(-time.Hour)))
		require.True(t, m.IsTokenExpired())
	})

	t.Run("absent token is expired", func(t *testing.T) {
		m := newManager(t, okIdentity(t), tokenstore.NewMemoryStore(), nil)
		require.True(t, m.IsTokenExpired())
	})

	t.Run("undecodable token is expired", func(t *testing.T) {
		m := withToken(t, "not.a.jwt")
		require.True(t, m.IsTokenExpired())
	})

	t.Run("token without exp never expires", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{})
		signed, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)

		m := withToken(t, signed)
		require.False(t, m.IsTokenExpired())
	})
}

func TestManager_EnsureAuthenticated(t *testing.T) {
	t.Run("live session passes", func(t *testing.T) {
		m := newManager(t, okIdentity(t), tokenstore.NewMemoryStore(), nil)
		_, err := m.Login(context.Background(), models.Credentials{Username: "alice", Password: "good-password"})
		require.NoError(t, err)

		require.NoError(t, m.EnsureAuthenticated(context.Background(), "/accounts"))
	})

	t.Run("unauthenticated redirects with return url", func(t *testing.T) {
		var gotURL string
		m := newManager(t, okIdentity(t), tokenstore.NewMemoryStore(), func(url string) { gotURL = url })

		err := m.EnsureAuthenticated(context.Background(), "/accounts")

		require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
		require.Equal(t, "/accounts", gotURL)
	})

	t.Run("expired token triggers refresh", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		identity := okIdentity(t)
		require.NoError(t, tokenstore.Save(store, tokenstore.Record{
			AccessToken:  signedToken(t, time.Now().Add(-time.Minute)),
			RefreshToken: "refresh-1",
			User:         &models.AuthUser{Username: "alice"},
		}))

		m := newManager(t, identity, store, nil)
		m.Initialize()

		require.NoError(t, m.EnsureAuthenticated(context.Background(), "/accounts"))
		require.Equal(t, int64(1), identity.refreshCalls.Load())
		require.False(t, m.IsTokenExpired(), "refreshed token should be live")
	})

	t.Run("failed refresh redirects with return url", func(t *testing.T) {
		store := tokenstore.NewMemoryStore()
		identity := okIdentity(t)
		identity.refreshFn = func(string) (models.TokenResponse, error) {
			return models.TokenResponse{}, errors.New("nope")
		}
		require.NoError(t, tokenstore.Save(store, tokenstore.Record{
			AccessToken:  signedToken(t, time.Now().Add(-time.Minute)),
			RefreshToken: "refresh-1",
			User:         &models.AuthUser{Username: "alice"},
		}))

		var urls []string
		m := newManager(t, identity, store, func(url string) { urls = append(urls, url) })
		m.Initialize()

		err := m.EnsureAuthenticated(context.Background(), "/accounts")

		require.Error(t, err)
		require.Contains(t, urls, "/accounts", "return url must be preserved")
		require.False(t, m.State().Authenticated())
	})
}
