package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachdesk/coachdesk/pkg/auth"
	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/rbac"
)

type stubKeyValidator struct {
	key *auth.APIKey
	err error
}

func (s *stubKeyValidator) ValidateKey(_ context.Context, _ string) (*auth.APIKey, error) {
	return s.key, s.err
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareAttachesContext(t *testing.T) {
	validator := &stubKeyValidator{key: &auth.APIKey{ID: "k-1", UserID: "u-1", OrganizationID: "org-1"}}
	mw := NewAuthMiddleware(validator, testLogger(), false)

	var authCtx *AuthContext
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx = GetAuthContext(r)
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer cdsk_sometoken")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.NotNil(t, authCtx)
	assert.Equal(t, "u-1", authCtx.UserID)
	assert.Equal(t, "org-1", authCtx.OrganizationID)
	assert.Equal(t, "k-1", authCtx.KeyID)
}

func TestAuthMiddlewareRejections(t *testing.T) {
	mw := NewAuthMiddleware(&stubKeyValidator{err: auth.ErrKeyRevoked}, testLogger(), false)
	hit := false
	handler := mw.Handler(okHandler(&hit))

	// Missing header.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed header.
	w = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Rejected key.
	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer cdsk_revoked")
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired")

	assert.False(t, hit)
}

func TestAuthMiddlewareOptional(t *testing.T) {
	mw := NewAuthMiddleware(&stubKeyValidator{err: auth.ErrKeyNotFound}, testLogger(), true)
	hit := false
	handler := mw.Handler(okHandler(&hit))

	// No header passes through unauthenticated.
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.True(t, hit)

	// A presented but bad key is still rejected.
	hit = false
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer cdsk_bad")
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, hit)
}

func TestRequirePermission(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	resolver := rbac.NewResolver(db, 0, testLogger(), nil)
	hit := false
	handler := RequirePermission(resolver, rbac.PermManageIntegrations)(okHandler(&hit))

	// Unauthenticated request.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, hit)

	// Authenticated but lacking the permission.
	mock.ExpectQuery("SELECT id, organization_id, role, is_biller(.+)FROM users").
		WithArgs("u-coach").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "role", "is_biller", "is_supervisor", "created_at", "updated_at"}).
			AddRow("u-coach", "org-1", "coach", false, false, time.Now(), time.Now()))
	w = httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", nil)
	r = r.WithContext(WithAuthContext(r.Context(), &AuthContext{UserID: "u-coach", OrganizationID: "org-1"}))
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "manage_integrations")
	assert.False(t, hit)

	// Authorized.
	mock.ExpectQuery("SELECT id, organization_id, role, is_biller(.+)FROM users").
		WithArgs("u-admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "role", "is_biller", "is_supervisor", "created_at", "updated_at"}).
			AddRow("u-admin", "org-1", "admin", false, false, time.Now(), time.Now()))
	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/", nil)
	r = r.WithContext(WithAuthContext(r.Context(), &AuthContext{UserID: "u-admin", OrganizationID: "org-1"}))
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hit)
}
