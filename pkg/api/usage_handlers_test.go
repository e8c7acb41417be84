package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachdesk/coachdesk/pkg/usage"
)

func newUsageRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	limiter := usage.NewLimiter(db, testLogger(), nil)
	handlers := NewUsageHandlers(limiter, testLogger())

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)
	return router, mock
}

func expectOrgRow(mock sqlmock.Sqlmock, id, plan, status string) {
	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "plan", "subscription_status", "created_at", "updated_at"}).
			AddRow(id, "Acme Coaching", "acme", plan, status, time.Now(), time.Now()))
}

func usageRecordRows(clients int64) *sqlmock.Rows {
	now := time.Now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "organization_id", "period_start", "period_end",
		"clients_count", "emails_sent", "sms_sent", "whatsapp_sent",
		"video_minutes", "ai_summaries_count", "ai_insights_count",
		"transcription_minutes", "team_members_count", "storage_bytes",
		"estimated_monthly_cost", "actual_cost_to_date",
		"created_at", "updated_at",
	}).AddRow(
		"rec-1", "org-1", periodStart, periodStart.AddDate(0, 1, 0),
		clients, 0, 0, 0,
		0, 0, 0,
		0, 1, 0,
		999.0, 0.0,
		now, now,
	)
}

func TestCheckLimitEndpoint(t *testing.T) {
	router, mock := newUsageRouter(t)

	expectOrgRow(mock, "org-1", "standard", "active")
	mock.ExpectQuery("SELECT(.+)FROM usage_records").
		WithArgs("org-1").
		WillReturnRows(usageRecordRows(50))

	w := httptest.NewRecorder()
	r := authed(httptest.NewRequest("GET", "/usage/check?resource=clients", nil), "u-1", "org-1")
	router.ServeHTTP(w, r)

	// A denied check still answers 200; callers branch on the payload.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"allowed":false`)
	assert.Contains(t, w.Body.String(), `"overage_cost":99`)
}

func TestCheckLimitRequiresResource(t *testing.T) {
	router, _ := newUsageRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("GET", "/usage/check", nil), "u-1", "org-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIncrementEndpoint(t *testing.T) {
	router, mock := newUsageRouter(t)

	expectOrgRow(mock, "org-1", "pro", "active")
	mock.ExpectExec("UPDATE usage_records SET emails_sent").
		WithArgs(int64(1), "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Alert evaluation reads the updated record.
	mock.ExpectQuery("SELECT(.+)FROM usage_records").
		WithArgs("org-1").
		WillReturnRows(usageRecordRows(10))

	w := httptest.NewRecorder()
	body := `{"resource":"emails"}`
	r := authed(httptest.NewRequest("POST", "/usage/increment", strings.NewReader(body)), "u-1", "org-1")
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusAccepted, w.Code)
	// Recording happens after the response; wait for the writes to land.
	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 10*time.Millisecond)
}

func TestIncrementValidation(t *testing.T) {
	router, _ := newUsageRouter(t)

	w := httptest.NewRecorder()
	r := authed(httptest.NewRequest("POST", "/usage/increment", strings.NewReader(`{}`)), "u-1", "org-1")
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrackCostEndpoint(t *testing.T) {
	router, mock := newUsageRouter(t)

	expectOrgRow(mock, "org-1", "standard", "active")
	mock.ExpectExec("INSERT INTO cost_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE usage_records SET actual_cost_to_date").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Ratio evaluation reads the record back.
	mock.ExpectQuery("SELECT(.+)FROM usage_records").
		WithArgs("org-1").
		WillReturnRows(usageRecordRows(10))

	w := httptest.NewRecorder()
	body := `{"cost_type":"ai_summary","quantity":2,"unit_cost":4.5}`
	r := authed(httptest.NewRequest("POST", "/usage/costs", strings.NewReader(body)), "u-1", "org-1")
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 10*time.Millisecond)
}

func TestTrackCostValidation(t *testing.T) {
	router, _ := newUsageRouter(t)

	w := httptest.NewRecorder()
	body := `{"cost_type":"ai_summary","quantity":-1,"unit_cost":4.5}`
	r := authed(httptest.NewRequest("POST", "/usage/costs", strings.NewReader(body)), "u-1", "org-1")
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "quantity must be positive")
}

func TestGetSummaryEndpoint(t *testing.T) {
	router, mock := newUsageRouter(t)

	mock.ExpectQuery("SELECT(.+)FROM usage_records").
		WithArgs("org-1").
		WillReturnRows(usageRecordRows(42))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("GET", "/usage/summary", nil), "u-1", "org-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"clients":42`)
}

func TestGetSummaryNoPeriod(t *testing.T) {
	router, mock := newUsageRouter(t)

	mock.ExpectQuery("SELECT(.+)FROM usage_records").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("GET", "/usage/summary", nil), "u-1", "org-1"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAlertsEndpoint(t *testing.T) {
	router, mock := newUsageRouter(t)

	mock.ExpectQuery("SELECT(.+)FROM usage_alerts").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "resource", "threshold", "severity", "message", "period_start", "created_at"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authed(httptest.NewRequest("GET", "/usage/alerts", nil), "u-1", "org-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alerts":[]`)
}
