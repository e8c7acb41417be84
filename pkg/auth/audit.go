package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// AuditEntry records a security-relevant action.
type AuditEntry struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	ActorID        string    `json:"actor_id,omitempty"`
	Action         string    `json:"action"`
	ResourceType   string    `json:"resource_type"`
	ResourceID     string    `json:"resource_id,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditLogger writes audit entries to Postgres.
type AuditLogger struct {
	db *sql.DB
}

// NewAuditLogger creates an audit logger backed by the given database.
func NewAuditLogger(db *sql.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists an audit entry.
func (al *AuditLogger) Record(ctx context.Context, entry *AuditEntry) error {
	if entry.Action == "" {
		return fmt.Errorf("action is required")
	}
	if entry.ResourceType == "" {
		return fmt.Errorf("resource_type is required")
	}
	if entry.Status == "" {
		return fmt.Errorf("status is required")
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO audit_log (id, organization_id, actor_id, action, resource_type, resource_id,
		                       ip_address, user_agent, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := al.db.ExecContext(ctx, query,
		entry.ID, entry.OrganizationID, nullIfEmpty(entry.ActorID),
		entry.Action, entry.ResourceType, nullIfEmpty(entry.ResourceID),
		nullIfEmpty(entry.IPAddress), nullIfEmpty(entry.UserAgent),
		entry.Status, nullIfEmpty(entry.ErrorMessage), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// RecordFromRequest builds an entry from an HTTP request and persists
// it, attaching the caller's address and user agent.
func (al *AuditLogger) RecordFromRequest(r *http.Request, orgID, actorID, action, resourceType, resourceID, status string, actionErr error) error {
	entry := &AuditEntry{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
		Status:         status,
	}
	if actionErr != nil {
		entry.ErrorMessage = actionErr.Error()
	}
	return al.Record(r.Context(), entry)
}

// ListEntries retrieves recent audit entries for an organization,
// newest first.
func (al *AuditLogger) ListEntries(ctx context.Context, orgID string, limit int) ([]*AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, organization_id, COALESCE(actor_id, ''), action, resource_type,
		       COALESCE(resource_id, ''), COALESCE(ip_address, ''), COALESCE(user_agent, ''),
		       status, COALESCE(error_message, ''), created_at
		FROM audit_log
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := al.db.QueryContext(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var entry AuditEntry
		if err := rows.Scan(
			&entry.ID, &entry.OrganizationID, &entry.ActorID,
			&entry.Action, &entry.ResourceType, &entry.ResourceID,
			&entry.IPAddress, &entry.UserAgent,
			&entry.Status, &entry.ErrorMessage, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// Audit action constants.
const (
	ActionRoleChange        = "role.change"
	ActionAssignmentCreate  = "assignment.create"
	ActionAssignmentRemove  = "assignment.remove"
	ActionKeyCreate         = "apikey.create"
	ActionKeyRevoke         = "apikey.revoke"
	ActionAuthSuccess       = "auth.success"
	ActionAuthFailure       = "auth.failure"
	ActionRateLimitExceeded = "ratelimit.exceeded"
)

// Status constants.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)
