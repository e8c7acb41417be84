package usage

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/orgs"
)

func newTestLimiter(t *testing.T) (*Limiter, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	limiter := NewLimiter(db, logger, nil)
	return limiter, mock, func() { db.Close() }
}

func expectOrg(mock sqlmock.Sqlmock, orgID string, plan orgs.Plan, status orgs.SubscriptionStatus) {
	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "plan", "subscription_status", "created_at", "updated_at"}).
			AddRow(orgID, "Test Org", "test-org", string(plan), string(status), time.Now(), time.Now()))
}

func recordRows(rec *Record) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "period_start", "period_end",
		"clients_count", "emails_sent", "sms_sent", "whatsapp_sent", "video_minutes",
		"ai_summaries_count", "ai_insights_count", "transcription_minutes",
		"team_members_count", "storage_bytes",
		"estimated_monthly_cost", "actual_cost_to_date", "created_at", "updated_at",
	})
	if rec != nil {
		rows.AddRow(rec.ID, rec.OrganizationID, rec.PeriodStart, rec.PeriodEnd,
			rec.ClientsCount, rec.EmailsSent, rec.SMSSent, rec.WhatsAppSent, rec.VideoMinutes,
			rec.AISummariesCount, rec.AIInsightsCount, rec.TranscriptionMinutes,
			rec.TeamMembersCount, rec.StorageBytes,
			rec.EstimatedMonthlyCost, rec.ActualCostToDate, rec.CreatedAt, rec.UpdatedAt)
	}
	return rows
}

func expectRecord(mock sqlmock.Sqlmock, orgID string, rec *Record) {
	mock.ExpectQuery("SELECT(.+)FROM usage_records").
		WithArgs(orgID).
		WillReturnRows(recordRows(rec))
}

func testRecord(orgID string) *Record {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return &Record{
		ID:             "rec-1",
		OrganizationID: orgID,
		PeriodStart:    start,
		PeriodEnd:      start.AddDate(0, 1, 0),
		CreatedAt:      start,
		UpdatedAt:      start,
	}
}

func TestCheckLimitAtLimitWithOverage(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	rec := testRecord("org-1")
	rec.ClientsCount = 50

	expectOrg(mock, "org-1", orgs.PlanStandard, orgs.SubscriptionActive)
	expectRecord(mock, "org-1", rec)

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceClients, 1)

	assert.False(t, result.Allowed)
	assert.Equal(t, int64(50), result.Limit)
	assert.Equal(t, int64(50), result.Current)
	assert.Equal(t, int64(0), result.Remaining)
	assert.Equal(t, int64(99), result.OverageCost)
	assert.Contains(t, result.Message, "₹99")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckLimitUnderLimit(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	rec := testRecord("org-1")
	rec.ClientsCount = 10

	expectOrg(mock, "org-1", orgs.PlanStandard, orgs.SubscriptionActive)
	expectRecord(mock, "org-1", rec)

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceClients, 5)

	assert.True(t, result.Allowed)
	assert.Equal(t, int64(50), result.Limit)
	assert.Equal(t, int64(10), result.Current)
	assert.Equal(t, int64(40), result.Remaining)
	assert.Empty(t, result.Message)
}

// Allowed iff current + requested <= limit, with the overage priced
// at exactly the excess.
func TestCheckLimitArithmetic(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	// current 48 of 50, requesting 3: one unit over.
	rec := testRecord("org-1")
	rec.ClientsCount = 48

	expectOrg(mock, "org-1", orgs.PlanStandard, orgs.SubscriptionActive)
	expectRecord(mock, "org-1", rec)

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceClients, 3)

	assert.False(t, result.Allowed)
	assert.Equal(t, int64(2), result.Remaining)
	// 1 unit over rounds up to one block of 5.
	assert.Equal(t, int64(99), result.OverageCost)
}

func TestCheckLimitUnlimitedSentinel(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	// Storage has no fair-use ceiling on premium: any current value
	// is allowed with the unboundable sentinel.
	rec := testRecord("org-1")
	rec.StorageBytes = 900 * gb

	expectOrg(mock, "org-1", orgs.PlanPremium, orgs.SubscriptionActive)
	expectRecord(mock, "org-1", rec)

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceStorageBytes, 1)

	assert.True(t, result.Allowed)
	assert.Equal(t, Unlimited, result.Limit)
	assert.Equal(t, int64(-1), result.Remaining)
}

func TestCheckLimitFairUseCeiling(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	rec := testRecord("org-1")
	rec.ClientsCount = 1000

	expectOrg(mock, "org-1", orgs.PlanPremium, orgs.SubscriptionActive)
	expectRecord(mock, "org-1", rec)

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceClients, 1)

	assert.False(t, result.Allowed)
	assert.Equal(t, Unlimited, result.Limit)
	assert.Contains(t, result.Message, "fair use")
}

func TestCheckLimitZeroLimitGate(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	expectOrg(mock, "org-1", orgs.PlanStandard, orgs.SubscriptionActive)
	expectRecord(mock, "org-1", testRecord("org-1"))

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceWhatsAppMessages, 1)

	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Limit)
	// Distinct message from the limit-exceeded case.
	assert.Contains(t, result.Message, "not available")
	assert.NotContains(t, result.Message, "reached")
}

func TestCheckLimitInactiveSubscription(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	// The gate fires before any usage lookup.
	expectOrg(mock, "org-1", orgs.PlanPro, orgs.SubscriptionPastDue)

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceClients, 1)

	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Limit)
	assert.Contains(t, result.Message, "not active")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckLimitOrganizationNotFound(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "plan", "subscription_status", "created_at", "updated_at"}))

	result := limiter.CheckLimit(context.Background(), "nope", ResourceClients, 1)

	assert.False(t, result.Allowed)
	assert.Equal(t, "Organization not found.", result.Message)
}

func TestCheckLimitFailsClosedOnError(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs("org-1").
		WillReturnError(fmt.Errorf("connection refused"))

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceClients, 1)

	assert.False(t, result.Allowed)
	assert.Equal(t, "Error checking usage limits.", result.Message)
}

func TestCheckLimitInvalidPlan(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	expectOrg(mock, "org-1", orgs.Plan("legacy"), orgs.SubscriptionActive)

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceClients, 1)

	assert.False(t, result.Allowed)
	assert.Equal(t, "Invalid subscription plan.", result.Message)
}

func TestCheckLimitNoRecordYet(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	expectOrg(mock, "org-1", orgs.PlanStandard, orgs.SubscriptionActive)
	expectRecord(mock, "org-1", nil)

	result := limiter.CheckLimit(context.Background(), "org-1", ResourceClients, 1)

	assert.True(t, result.Allowed)
	assert.Equal(t, int64(0), result.Current)
	assert.Equal(t, int64(50), result.Remaining)
}

func TestIncrementCreatesAlertAt80Percent(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	// Pro video_minutes limit is 600; 486 minutes is 81%.
	rec := testRecord("org-1")
	rec.VideoMinutes = 486

	expectOrg(mock, "org-1", orgs.PlanPro, orgs.SubscriptionActive)
	mock.ExpectExec("UPDATE usage_records").
		WithArgs(int64(12), "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecord(mock, "org-1", rec)
	mock.ExpectExec("INSERT INTO usage_alerts").
		WillReturnResult(sqlmock.NewResult(0, 1))

	limiter.Increment(context.Background(), "org-1", ResourceVideoMinutes, 12, nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementAlertDeduplicated(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	rec := testRecord("org-1")
	rec.VideoMinutes = 498

	expectOrg(mock, "org-1", orgs.PlanPro, orgs.SubscriptionActive)
	mock.ExpectExec("UPDATE usage_records").
		WithArgs(int64(12), "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecord(mock, "org-1", rec)
	// The conflict target swallows the duplicate: zero rows affected.
	mock.ExpectExec("INSERT INTO usage_alerts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	limiter.Increment(context.Background(), "org-1", ResourceVideoMinutes, 12, nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementBelowThresholdWritesNoAlert(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	rec := testRecord("org-1")
	rec.VideoMinutes = 100

	expectOrg(mock, "org-1", orgs.PlanPro, orgs.SubscriptionActive)
	mock.ExpectExec("UPDATE usage_records").
		WithArgs(int64(10), "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecord(mock, "org-1", rec)

	limiter.Increment(context.Background(), "org-1", ResourceVideoMinutes, 10, nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementInitializesPeriodOnFirstUse(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	rec := testRecord("org-1")
	rec.ClientsCount = 1

	expectOrg(mock, "org-1", orgs.PlanStandard, orgs.SubscriptionActive)
	// No current period row: the update misses, the period row is
	// created, then the update is retried.
	mock.ExpectExec("UPDATE usage_records").
		WithArgs(int64(1), "org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO usage_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE usage_records").
		WithArgs(int64(1), "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecord(mock, "org-1", rec)

	limiter.Increment(context.Background(), "org-1", ResourceClients, 1, nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementSwallowsFailures(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	expectOrg(mock, "org-1", orgs.PlanStandard, orgs.SubscriptionActive)
	mock.ExpectExec("UPDATE usage_records").
		WillReturnError(fmt.Errorf("connection refused"))

	// Must not panic and must not propagate the error.
	limiter.Increment(context.Background(), "org-1", ResourceClients, 1, nil)
}

func TestSummary(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	rec := testRecord("org-1")
	rec.ClientsCount = 12
	rec.EmailsSent = 340
	rec.StorageBytes = 2 * gb
	rec.EstimatedMonthlyCost = 999
	rec.ActualCostToDate = 120.5

	expectRecord(mock, "org-1", rec)

	summary := limiter.Summary(context.Background(), "org-1")
	require.NotNil(t, summary)
	assert.Equal(t, int64(12), summary.Counters["clients"])
	assert.Equal(t, int64(340), summary.Counters["emails"])
	assert.Equal(t, 2.0, summary.StorageGB)
	assert.Equal(t, 120.5, summary.ActualCostToDate)
}

func TestSummaryNilWhenNoRecord(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	expectRecord(mock, "org-1", nil)

	assert.Nil(t, limiter.Summary(context.Background(), "org-1"))
}

func TestCostStatus(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	rec := testRecord("org-1")
	rec.EstimatedMonthlyCost = 1000
	rec.ActualCostToDate = 2100

	expectRecord(mock, "org-1", rec)

	intent, ratio, err := limiter.CostStatus(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, CostIntentThrottle, intent)
	assert.InDelta(t, 2.1, ratio, 0.001)
}

func TestCostStatusNoEstimate(t *testing.T) {
	limiter, mock, cleanup := newTestLimiter(t)
	defer cleanup()

	expectRecord(mock, "org-1", testRecord("org-1"))

	intent, ratio, err := limiter.CostStatus(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, CostIntentNone, intent)
	assert.Zero(t, ratio)
}
