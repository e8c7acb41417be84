package usage

import (
	"context"
	"database/sql"

	"github.com/coachdesk/coachdesk/pkg/migrate"
)

// Migrations returns the schema migrations for usage metering.
func Migrations() []migrate.Migration {
	return []migrate.Migration{
		{
			Version:     1,
			Description: "Create usage_records table",
			SQL: `
				CREATE TABLE IF NOT EXISTS usage_records (
					id UUID PRIMARY KEY,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					period_start TIMESTAMP NOT NULL,
					period_end TIMESTAMP NOT NULL,
					clients_count BIGINT NOT NULL DEFAULT 0,
					emails_sent BIGINT NOT NULL DEFAULT 0,
					sms_sent BIGINT NOT NULL DEFAULT 0,
					whatsapp_sent BIGINT NOT NULL DEFAULT 0,
					video_minutes BIGINT NOT NULL DEFAULT 0,
					ai_summaries_count BIGINT NOT NULL DEFAULT 0,
					ai_insights_count BIGINT NOT NULL DEFAULT 0,
					transcription_minutes BIGINT NOT NULL DEFAULT 0,
					team_members_count BIGINT NOT NULL DEFAULT 0,
					storage_bytes BIGINT NOT NULL DEFAULT 0,
					estimated_monthly_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
					actual_cost_to_date NUMERIC(12,2) NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(organization_id, period_start)
				);

				CREATE INDEX idx_usage_records_organization_id ON usage_records(organization_id);
				CREATE INDEX idx_usage_records_period_end ON usage_records(period_end);
			`,
		},
		{
			Version:     2,
			Description: "Create usage_alerts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS usage_alerts (
					id UUID PRIMARY KEY,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					resource VARCHAR(50) NOT NULL,
					period_start TIMESTAMP NOT NULL,
					threshold INT NOT NULL,
					severity VARCHAR(20) NOT NULL,
					message TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(organization_id, resource, period_start, threshold)
				);

				CREATE INDEX idx_usage_alerts_organization_id ON usage_alerts(organization_id);
			`,
		},
		{
			Version:     3,
			Description: "Create cost_events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS cost_events (
					id UUID PRIMARY KEY,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					cost_type VARCHAR(50) NOT NULL,
					quantity NUMERIC(12,4) NOT NULL,
					unit_cost NUMERIC(12,4) NOT NULL,
					total_cost NUMERIC(12,4) NOT NULL,
					metadata JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_cost_events_organization_id ON cost_events(organization_id);
				CREATE INDEX idx_cost_events_created_at ON cost_events(created_at);
			`,
		},
	}
}

// RunMigrations applies all pending usage migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, "usage_migrations", Migrations())
}
