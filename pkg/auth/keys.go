package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// KeyPrefix identifies CoachDesk API keys.
	KeyPrefix = "cdsk_"
	// KeyLength is the number of random bytes per key (256 bits).
	KeyLength = 32
)

// KeyGenerator generates and hashes API keys.
type KeyGenerator struct{}

// NewKeyGenerator creates a new key generator.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// GenerateKey creates a new API key.
// Format: cdsk_<base64url(32 random bytes)>
func (kg *KeyGenerator) GenerateKey() (key string, keyHash string, keyPrefix string, err error) {
	randomBytes := make([]byte, KeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullKey := KeyPrefix + encoded

	hash := sha256.Sum256([]byte(fullKey))
	hashStr := hex.EncodeToString(hash[:])

	// First 8 chars after "cdsk_" identify the key in listings.
	prefix := KeyPrefix
	if len(encoded) >= 8 {
		prefix = KeyPrefix + encoded[:8]
	}

	return fullKey, hashStr, prefix, nil
}

// HashKey computes the SHA-256 hash of a key for lookup.
func (kg *KeyGenerator) HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// ValidateKeyFormat checks that a presented key has the expected shape
// before any database work happens.
func (kg *KeyGenerator) ValidateKeyFormat(key string) error {
	if !strings.HasPrefix(key, KeyPrefix) {
		return fmt.Errorf("key must start with %q", KeyPrefix)
	}

	encoded := strings.TrimPrefix(key, KeyPrefix)
	if len(encoded) == 0 {
		return fmt.Errorf("key is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid key encoding: %w", err)
	}

	return nil
}

// ExtractPrefix extracts the display prefix from a raw key.
func (kg *KeyGenerator) ExtractPrefix(key string) string {
	if !strings.HasPrefix(key, KeyPrefix) {
		return ""
	}

	encoded := strings.TrimPrefix(key, KeyPrefix)
	if len(encoded) >= 8 {
		return KeyPrefix + encoded[:8]
	}

	return key
}

// KeyStore manages the API key lifecycle against Postgres.
type KeyStore struct {
	db        *sql.DB
	generator *KeyGenerator
}

// NewKeyStore creates a key store backed by the given database.
func NewKeyStore(db *sql.DB) *KeyStore {
	return &KeyStore{
		db:        db,
		generator: NewKeyGenerator(),
	}
}

// CreateKey issues a new API key for a user. The raw key is returned
// exactly once and never stored.
func (ks *KeyStore) CreateKey(ctx context.Context, userID, organizationID, name string, expiresAt *time.Time) (*APIKey, string, error) {
	rawKey, keyHash, keyPrefix, err := ks.generator.GenerateKey()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate key: %w", err)
	}

	apiKey := &APIKey{
		ID:             uuid.NewString(),
		UserID:         userID,
		OrganizationID: organizationID,
		KeyHash:        keyHash,
		KeyPrefix:      keyPrefix,
		Name:           name,
		ExpiresAt:      expiresAt,
		CreatedAt:      time.Now().UTC(),
	}

	query := `
		INSERT INTO api_keys (id, user_id, organization_id, key_hash, key_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = ks.db.ExecContext(ctx, query,
		apiKey.ID, apiKey.UserID, apiKey.OrganizationID,
		apiKey.KeyHash, apiKey.KeyPrefix, apiKey.Name,
		apiKey.ExpiresAt, apiKey.CreatedAt,
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store api key: %w", err)
	}

	return apiKey, rawKey, nil
}

// ValidateKey resolves a raw key to its record, rejecting revoked and
// expired keys. On success it stamps last_used_at.
func (ks *KeyStore) ValidateKey(ctx context.Context, rawKey string) (*APIKey, error) {
	if err := ks.generator.ValidateKeyFormat(rawKey); err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}

	keyHash := ks.generator.HashKey(rawKey)

	query := `
		SELECT id, user_id, organization_id, key_hash, key_prefix, name,
		       expires_at, revoked_at, last_used_at, created_at
		FROM api_keys
		WHERE key_hash = $1`

	var key APIKey
	err := ks.db.QueryRowContext(ctx, query, keyHash).Scan(
		&key.ID, &key.UserID, &key.OrganizationID,
		&key.KeyHash, &key.KeyPrefix, &key.Name,
		&key.ExpiresAt, &key.RevokedAt, &key.LastUsedAt, &key.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}

	if key.RevokedAt != nil {
		return nil, ErrKeyRevoked
	}
	now := time.Now().UTC()
	if key.ExpiresAt != nil && !key.ExpiresAt.After(now) {
		return nil, ErrKeyExpired
	}

	// Best effort; a failed stamp must not block authentication.
	_, _ = ks.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, now, key.ID)
	key.LastUsedAt = &now

	return &key, nil
}

// RevokeKey marks a key as revoked. Revocation is permanent.
func (ks *KeyStore) RevokeKey(ctx context.Context, keyID string) error {
	result, err := ks.db.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), keyID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check revocation result: %w", err)
	}
	if rows == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// ListUserKeys returns all keys issued to a user, newest first.
func (ks *KeyStore) ListUserKeys(ctx context.Context, userID string) ([]*APIKey, error) {
	query := `
		SELECT id, user_id, organization_id, key_hash, key_prefix, name,
		       expires_at, revoked_at, last_used_at, created_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := ks.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		var key APIKey
		if err := rows.Scan(
			&key.ID, &key.UserID, &key.OrganizationID,
			&key.KeyHash, &key.KeyPrefix, &key.Name,
			&key.ExpiresAt, &key.RevokedAt, &key.LastUsedAt, &key.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, &key)
	}
	return keys, rows.Err()
}

// CleanupExpiredKeys revokes keys whose expiry has passed, returning
// the number touched.
func (ks *KeyStore) CleanupExpiredKeys(ctx context.Context) (int64, error) {
	result, err := ks.db.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = NOW() WHERE expires_at < NOW() AND revoked_at IS NULL`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired keys: %w", err)
	}
	return result.RowsAffected()
}
