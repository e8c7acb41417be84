package usage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// resourceColumns maps a logical resource to its counter column.
var resourceColumns = map[ResourceType]string{
	ResourceClients:              "clients_count",
	ResourceEmails:               "emails_sent",
	ResourceSMSMessages:          "sms_sent",
	ResourceWhatsAppMessages:     "whatsapp_sent",
	ResourceVideoMinutes:         "video_minutes",
	ResourceAISummaries:          "ai_summaries_count",
	ResourceAIInsights:           "ai_insights_count",
	ResourceTranscriptionMinutes: "transcription_minutes",
	ResourceTeamMembers:          "team_members_count",
	ResourceStorageBytes:         "storage_bytes",
}

const recordColumns = `id, organization_id, period_start, period_end,
	clients_count, emails_sent, sms_sent, whatsapp_sent, video_minutes,
	ai_summaries_count, ai_insights_count, transcription_minutes,
	team_members_count, storage_bytes,
	estimated_monthly_cost, actual_cost_to_date, created_at, updated_at`

// Store provides persistence for usage records, alerts and cost
// events.
type Store struct {
	db *sql.DB
}

// NewStore creates a new usage store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// currentPeriod returns the first-of-month boundaries for now.
func currentPeriod() (time.Time, time.Time) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func scanRecord(row *sql.Row) (*Record, error) {
	rec := &Record{}
	err := row.Scan(
		&rec.ID, &rec.OrganizationID, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.ClientsCount, &rec.EmailsSent, &rec.SMSSent, &rec.WhatsAppSent, &rec.VideoMinutes,
		&rec.AISummariesCount, &rec.AIInsightsCount, &rec.TranscriptionMinutes,
		&rec.TeamMembersCount, &rec.StorageBytes,
		&rec.EstimatedMonthlyCost, &rec.ActualCostToDate, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRecord returns the current period's record, or nil if the
// organization has not consumed anything this period. Read-only.
func (s *Store) GetRecord(ctx context.Context, orgID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM usage_records
		WHERE organization_id = $1 AND period_end > NOW()
		ORDER BY period_start DESC
		LIMIT 1
	`, recordColumns), orgID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}
	return rec, nil
}

// InitPeriod lazily creates the current period's record. Safe to call
// concurrently; losers of the insert race are no-ops.
func (s *Store) InitPeriod(ctx context.Context, orgID string, estimatedMonthlyCost float64) error {
	start, end := currentPeriod()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (id, organization_id, period_start, period_end, estimated_monthly_cost)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, period_start) DO NOTHING
	`, uuid.NewString(), orgID, start, end, estimatedMonthlyCost)
	if err != nil {
		return fmt.Errorf("failed to initialize usage period: %w", err)
	}
	return nil
}

// Increment atomically adds amount to a resource counter for the
// current period, creating the period row first if needed.
func (s *Store) Increment(ctx context.Context, orgID string, resource ResourceType, amount int64, estimatedMonthlyCost float64) error {
	column, ok := resourceColumns[resource]
	if !ok {
		return fmt.Errorf("unknown resource type: %s", resource)
	}

	query := fmt.Sprintf(`
		UPDATE usage_records
		SET %s = %s + $1, updated_at = NOW()
		WHERE organization_id = $2 AND period_end > NOW()
	`, column, column)

	result, err := s.db.ExecContext(ctx, query, amount, orgID)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", resource, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if err := s.InitPeriod(ctx, orgID, estimatedMonthlyCost); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, query, amount, orgID); err != nil {
			return fmt.Errorf("failed to increment %s: %w", resource, err)
		}
	}

	return nil
}

// InsertAlert writes a threshold alert. The unique key on
// (organization, resource, period, threshold) makes the insert
// idempotent: re-crossing an already-alerted threshold is a no-op.
// Returns true when a new alert row was created.
func (s *Store) InsertAlert(ctx context.Context, alert *Alert) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_alerts (id, organization_id, resource, period_start, threshold, severity, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_id, resource, period_start, threshold) DO NOTHING
	`, uuid.NewString(), alert.OrganizationID, string(alert.Resource), alert.PeriodStart, alert.Threshold, string(alert.Severity), alert.Message)
	if err != nil {
		return false, fmt.Errorf("failed to insert usage alert: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListAlerts returns the current period's alerts for an organization,
// newest first.
func (s *Store) ListAlerts(ctx context.Context, orgID string) ([]*Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, resource, period_start, threshold, severity, message, created_at
		FROM usage_alerts
		WHERE organization_id = $1 AND period_start = date_trunc('month', NOW() AT TIME ZONE 'UTC')
		ORDER BY created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		alert := &Alert{}
		if err := rows.Scan(&alert.ID, &alert.OrganizationID, &alert.Resource, &alert.PeriodStart,
			&alert.Threshold, &alert.Severity, &alert.Message, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// RecordCost inserts a cost event and bumps the period's
// actual_cost_to_date, creating the period row first if needed.
func (s *Store) RecordCost(ctx context.Context, event *CostEvent, estimatedMonthlyCost float64) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal cost metadata: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cost_events (id, organization_id, cost_type, quantity, unit_cost, total_cost, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), event.OrganizationID, event.CostType, event.Quantity, event.UnitCost, event.TotalCost, metadata); err != nil {
		return fmt.Errorf("failed to insert cost event: %w", err)
	}

	query := `
		UPDATE usage_records
		SET actual_cost_to_date = actual_cost_to_date + $1, updated_at = NOW()
		WHERE organization_id = $2 AND period_end > NOW()
	`
	result, err := s.db.ExecContext(ctx, query, event.TotalCost, event.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to update cost to date: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if err := s.InitPeriod(ctx, event.OrganizationID, estimatedMonthlyCost); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, query, event.TotalCost, event.OrganizationID); err != nil {
			return fmt.Errorf("failed to update cost to date: %w", err)
		}
	}

	return nil
}
