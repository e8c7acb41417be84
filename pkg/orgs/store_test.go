package orgs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrganization(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "plan", "subscription_status", "created_at", "updated_at"}).
			AddRow("org-1", "Stride Coaching", "stride-coaching", "pro", "active", time.Now(), time.Now()))

	org, err := store.GetOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", org.ID)
	assert.Equal(t, PlanPro, org.Plan)
	assert.Equal(t, SubscriptionActive, org.SubscriptionStatus)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrganizationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectQuery("SELECT id, name, slug, plan, subscription_status(.+)FROM organizations").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "plan", "subscription_status", "created_at", "updated_at"}))

	_, err = store.GetOrganization(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpdateSubscriptionStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectExec("UPDATE organizations").
		WithArgs("past_due", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.UpdateSubscriptionStatus(context.Background(), "org-1", SubscriptionPastDue)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionUsable(t *testing.T) {
	assert.True(t, SubscriptionActive.Usable())
	assert.True(t, SubscriptionTrial.Usable())
	assert.False(t, SubscriptionPastDue.Usable())
	assert.False(t, SubscriptionCanceled.Usable())
	assert.False(t, SubscriptionIncomplete.Usable())
}
