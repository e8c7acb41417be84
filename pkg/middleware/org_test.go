package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachdesk/coachdesk/pkg/orgs"
	"github.com/coachdesk/coachdesk/pkg/usage"
)

func orgRows(id, plan, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "slug", "plan", "subscription_status", "created_at", "updated_at"}).
		AddRow(id, "Acme Coaching", "acme", plan, status, time.Now(), time.Now())
}

func TestOrgContextMiddleware(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := orgs.NewStore(db)

	var resolved *orgs.Organization
	router := mux.NewRouter()
	router.Use(OrgContextMiddleware(store))
	router.HandleFunc("/orgs/{org_id}/usage", func(w http.ResponseWriter, r *http.Request) {
		resolved = GetOrganization(r)
	})

	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs("org-1").
		WillReturnRows(orgRows("org-1", "pro", "active"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/orgs/org-1/usage", nil))
	require.NotNil(t, resolved)
	assert.Equal(t, orgs.PlanPro, resolved.Plan)
}

func TestOrgContextMiddlewareNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := orgs.NewStore(db)

	router := mux.NewRouter()
	router.Use(OrgContextMiddleware(store))
	router.HandleFunc("/orgs/{org_id}/usage", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "plan", "subscription_status", "created_at", "updated_at"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/orgs/ghost/usage", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnforceUsageSkipsReads(t *testing.T) {
	hit := false
	handler := EnforceUsage(nil, usage.ResourceClients)(okHandler(&hit))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/clients", nil))
	assert.True(t, hit)
}

func TestEnforceUsageDenies(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	limiter := usage.NewLimiter(db, testLogger(), nil)

	hit := false
	handler := EnforceUsage(limiter, usage.ResourceClients)(okHandler(&hit))

	// Inactive subscription denies the check.
	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs("org-1").
		WillReturnRows(orgRows("org-1", "standard", "past_due"))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/clients", nil)
	r = r.WithContext(WithAuthContext(r.Context(), &AuthContext{UserID: "u-1", OrganizationID: "org-1"}))
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "subscription is not active")
	assert.False(t, hit)
}

func TestEnforceUsageAllows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	limiter := usage.NewLimiter(db, testLogger(), nil)

	hit := false
	handler := EnforceUsage(limiter, usage.ResourceClients)(okHandler(&hit))

	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs("org-1").
		WillReturnRows(orgRows("org-1", "premium", "active"))
	// Premium clients are unlimited but still read the current count.
	mock.ExpectQuery("SELECT(.+)FROM usage_records").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/clients", nil)
	r = r.WithContext(WithAuthContext(r.Context(), &AuthContext{UserID: "u-1", OrganizationID: "org-1"}))
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hit)
}

func TestEnforceUsageRequiresOrg(t *testing.T) {
	hit := false
	handler := EnforceUsage(nil, usage.ResourceClients)(okHandler(&hit))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/clients", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, hit)
}
