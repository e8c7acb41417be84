package rbac

import (
	"context"
	"database/sql"

	"github.com/coachdesk/coachdesk/pkg/migrate"
)

// Migrations returns the schema migrations for the access-control
// tables.
func Migrations() []migrate.Migration {
	return []migrate.Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					role VARCHAR(20) NOT NULL,
					is_biller BOOLEAN NOT NULL DEFAULT FALSE,
					is_supervisor BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_users_organization_id ON users(organization_id);
				CREATE INDEX idx_users_role ON users(role);
			`,
		},
		{
			Version:     2,
			Description: "Create clients table",
			SQL: `
				CREATE TABLE IF NOT EXISTS clients (
					id UUID PRIMARY KEY,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_clients_organization_id ON clients(organization_id);
			`,
		},
		{
			Version:     3,
			Description: "Create client_assignments table",
			SQL: `
				CREATE TABLE IF NOT EXISTS client_assignments (
					id UUID PRIMARY KEY,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					client_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
					coach_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					assignment_type VARCHAR(20) NOT NULL DEFAULT 'primary',
					assigned_by UUID REFERENCES users(id) ON DELETE SET NULL,
					assigned_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(coach_id, client_id)
				);

				CREATE INDEX idx_client_assignments_coach_id ON client_assignments(coach_id);
				CREATE INDEX idx_client_assignments_client_id ON client_assignments(client_id);
				CREATE INDEX idx_client_assignments_organization_id ON client_assignments(organization_id);
			`,
		},
	}
}

// RunMigrations applies all pending access-control migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, "rbac_migrations", Migrations())
}
