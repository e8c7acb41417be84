package auth

import (
	"errors"
	"time"
)

// APIKey is the stored record for an issued key. The raw key is shown
// to the caller exactly once at creation time; only its SHA-256 hash
// is persisted.
type APIKey struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	OrganizationID string     `json:"organization_id"`
	KeyHash        string     `json:"-"`
	KeyPrefix      string     `json:"key_prefix"`
	Name           string     `json:"name"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Active reports whether the key can still authenticate requests.
func (k *APIKey) Active(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}

var (
	// ErrKeyNotFound means no key matches the presented credential.
	ErrKeyNotFound = errors.New("api key not found")
	// ErrKeyRevoked means the key exists but has been revoked.
	ErrKeyRevoked = errors.New("api key revoked")
	// ErrKeyExpired means the key exists but is past its expiry.
	ErrKeyExpired = errors.New("api key expired")
)
