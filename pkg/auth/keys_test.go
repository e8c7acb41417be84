package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	generator := NewKeyGenerator()

	key, keyHash, keyPrefix, err := generator.GenerateKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, KeyPrefix))
	assert.Len(t, keyHash, 64)
	assert.Equal(t, keyHash, generator.HashKey(key))
	assert.True(t, strings.HasPrefix(keyPrefix, KeyPrefix))
	assert.True(t, strings.HasPrefix(key, keyPrefix))
	assert.NoError(t, generator.ValidateKeyFormat(key))
}

func TestGenerateKeyUnique(t *testing.T) {
	generator := NewKeyGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, _, _, err := generator.GenerateKey()
		require.NoError(t, err)
		assert.False(t, seen[key])
		seen[key] = true
	}
}

func TestValidateKeyFormat(t *testing.T) {
	generator := NewKeyGenerator()

	assert.Error(t, generator.ValidateKeyFormat("bearer_abc"))
	assert.Error(t, generator.ValidateKeyFormat("cdsk_"))
	assert.Error(t, generator.ValidateKeyFormat("cdsk_not!valid!base64!"))
}

func TestExtractPrefix(t *testing.T) {
	generator := NewKeyGenerator()

	assert.Equal(t, "cdsk_abcdefgh", generator.ExtractPrefix("cdsk_abcdefghijklmnop"))
	assert.Equal(t, "", generator.ExtractPrefix("plain-token"))
}

func keyColumns() []string {
	return []string{
		"id", "user_id", "organization_id", "key_hash", "key_prefix", "name",
		"expires_at", "revoked_at", "last_used_at", "created_at",
	}
}

func TestValidateKeyLifecycle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewKeyStore(db)
	generator := NewKeyGenerator()
	rawKey, keyHash, keyPrefix, err := generator.GenerateKey()
	require.NoError(t, err)

	// Valid key: lookup plus last_used stamp.
	mock.ExpectQuery("SELECT id, user_id, organization_id, key_hash(.+)FROM api_keys").
		WithArgs(keyHash).
		WillReturnRows(sqlmock.NewRows(keyColumns()).
			AddRow("k-1", "u-1", "org-1", keyHash, keyPrefix, "ci", nil, nil, nil, time.Now()))
	mock.ExpectExec("UPDATE api_keys SET last_used_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	key, err := store.ValidateKey(context.Background(), rawKey)
	require.NoError(t, err)
	assert.Equal(t, "u-1", key.UserID)
	assert.Equal(t, "org-1", key.OrganizationID)
	assert.NotNil(t, key.LastUsedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateKeyRejections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewKeyStore(db)
	generator := NewKeyGenerator()
	rawKey, keyHash, keyPrefix, err := generator.GenerateKey()
	require.NoError(t, err)

	// Unknown key.
	mock.ExpectQuery("SELECT id, user_id, organization_id, key_hash(.+)FROM api_keys").
		WithArgs(keyHash).
		WillReturnRows(sqlmock.NewRows(keyColumns()))
	_, err = store.ValidateKey(context.Background(), rawKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Revoked key.
	revoked := time.Now().Add(-time.Hour)
	mock.ExpectQuery("SELECT id, user_id, organization_id, key_hash(.+)FROM api_keys").
		WithArgs(keyHash).
		WillReturnRows(sqlmock.NewRows(keyColumns()).
			AddRow("k-1", "u-1", "org-1", keyHash, keyPrefix, "ci", nil, revoked, nil, time.Now()))
	_, err = store.ValidateKey(context.Background(), rawKey)
	assert.ErrorIs(t, err, ErrKeyRevoked)

	// Expired key.
	expired := time.Now().Add(-time.Minute)
	mock.ExpectQuery("SELECT id, user_id, organization_id, key_hash(.+)FROM api_keys").
		WithArgs(keyHash).
		WillReturnRows(sqlmock.NewRows(keyColumns()).
			AddRow("k-1", "u-1", "org-1", keyHash, keyPrefix, "ci", expired, nil, nil, time.Now()))
	_, err = store.ValidateKey(context.Background(), rawKey)
	assert.ErrorIs(t, err, ErrKeyExpired)

	// Malformed key short-circuits before any query.
	_, err = store.ValidateKey(context.Background(), "not-a-key")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewKeyStore(db)

	mock.ExpectExec("INSERT INTO api_keys").
		WillReturnResult(sqlmock.NewResult(0, 1))

	key, rawKey, err := store.CreateKey(context.Background(), "u-1", "org-1", "ci", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rawKey, KeyPrefix))
	assert.NotEqual(t, rawKey, key.KeyHash)
	assert.Equal(t, NewKeyGenerator().HashKey(rawKey), key.KeyHash)
	assert.True(t, key.Active(time.Now()))
}

func TestRevokeKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewKeyStore(db)

	mock.ExpectExec("UPDATE api_keys SET revoked_at").
		WithArgs(sqlmock.AnyArg(), "k-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, store.RevokeKey(context.Background(), "k-1"))

	// Already revoked or unknown.
	mock.ExpectExec("UPDATE api_keys SET revoked_at").
		WithArgs(sqlmock.AnyArg(), "k-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.RevokeKey(context.Background(), "k-2"), ErrKeyNotFound)
}

func TestAPIKeyActive(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, (&APIKey{}).Active(now))
	assert.True(t, (&APIKey{ExpiresAt: &future}).Active(now))
	assert.False(t, (&APIKey{ExpiresAt: &past}).Active(now))
	assert.False(t, (&APIKey{RevokedAt: &past}).Active(now))
}
