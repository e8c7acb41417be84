package auth

import (
	"context"
	"database/sql"

	"github.com/coachdesk/coachdesk/pkg/migrate"
)

var migrations = []migrate.Migration{
	{
		Version:     1,
		Description: "create api_keys table",
		SQL: `
			CREATE TABLE IF NOT EXISTS api_keys (
				id UUID PRIMARY KEY,
				user_id UUID NOT NULL,
				organization_id UUID NOT NULL,
				key_hash TEXT NOT NULL UNIQUE,
				key_prefix TEXT NOT NULL,
				name TEXT NOT NULL,
				expires_at TIMESTAMPTZ,
				revoked_at TIMESTAMPTZ,
				last_used_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id);
			CREATE INDEX IF NOT EXISTS idx_api_keys_org ON api_keys(organization_id);
		`,
	},
	{
		Version:     2,
		Description: "create audit_log table",
		SQL: `
			CREATE TABLE IF NOT EXISTS audit_log (
				id UUID PRIMARY KEY,
				organization_id UUID NOT NULL,
				actor_id UUID,
				action TEXT NOT NULL,
				resource_type TEXT NOT NULL,
				resource_id TEXT,
				ip_address TEXT,
				user_agent TEXT,
				status TEXT NOT NULL,
				error_message TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_audit_log_org_time ON audit_log(organization_id, created_at DESC);
		`,
	},
}

// RunMigrations applies the auth schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, "auth_migrations", migrations)
}
