package orgs

import (
	"context"
	"database/sql"

	"github.com/coachdesk/coachdesk/pkg/migrate"
)

// Migrations returns the schema migrations for organization records.
func Migrations() []migrate.Migration {
	return []migrate.Migration{
		{
			Version:     1,
			Description: "Create organizations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					plan VARCHAR(20) NOT NULL DEFAULT 'standard',
					subscription_status VARCHAR(20) NOT NULL DEFAULT 'trial',
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_organizations_slug ON organizations(slug);
			`,
		},
	}
}

// RunMigrations applies all pending organization migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, "orgs_migrations", Migrations())
}
