package tokenstore

import (
	"encoding/json"

	"github.com/avoronov/finsession/internal/models"
)

// Fixed logical keys. The session manager is the only writer.
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "auth_user"
)

// Store is durable scoped key-value storage for the session record.
// Reads never fail on missing keys: absence is reported via ok, not error.
type Store interface {
	// Get returns the stored value for key, ok is false if the key is absent
	Get(key string) (value string, ok bool)

	// Set stores value under key, replacing any previous value
	Set(key string, value string) error

	// Delete removes key. Deleting an absent key is not an error
	Delete(key string) error
}

// Record is the persisted session as a unit: created at login success,
// token fields replaced at refresh, destroyed at logout.
type Record struct {
	AccessToken  string
	RefreshToken string
	User         *models.AuthUser
}

// Load reads the full record. A corrupt user entry reads as absent user,
// never as an error.
func Load(s Store) Record {
	var r Record

	r.AccessToken, _ = s.Get(KeyAccessToken)
	r.RefreshToken, _ = s.Get(KeyRefreshToken)

	if raw, ok := s.Get(KeyUser); ok {
		var user models.AuthUser
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			r.User = &user
		}
	}

	return r
}

// Save writes the full record. The refresh token entry is kept untouched when
// the record carries none, cause the identity server may not rotate it.
func Save(s Store, r Record) error {
	if err := s.Set(KeyAccessToken, r.AccessToken); err != nil {
		return err
	}

	if r.RefreshToken != "" {
		if err := s.Set(KeyRefreshToken, r.RefreshToken); err != nil {
			return err
		}
	}

	if r.User != nil {
		raw, err := json.Marshal(r.User)
		if err != nil {
			return err
		}
		if err := s.Set(KeyUser, string(raw)); err != nil {
			return err
		}
	}

	return nil
}

// Clear removes all three keys
func Clear(s Store) error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
