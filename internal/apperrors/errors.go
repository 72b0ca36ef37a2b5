package apperrors

import (
	"errors"
)

var (
	// ErrInvalidCredentials means the identity endpoint rejected the login
	// request itself (4xx), not that the transport failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoRefreshToken means a refresh was attempted with nothing stored.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrRefreshRejected means the identity endpoint returned non-2xx for a
	// refresh grant. The session is torn down before this error is returned.
	ErrRefreshRejected = errors.New("refresh token rejected")

	// ErrNetworkUnavailable is a transport-level failure: no response at all.
	// It never mutates session state.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrMalformedToken means the access token payload could not be decoded.
	// Callers treat the token as expired rather than failing hard.
	ErrMalformedToken = errors.New("malformed access token")

	ErrNotAuthenticated = errors.New("not authenticated")

	ErrUnauthorized = errors.New("request unauthorized")
)
