package rbac

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store handles RBAC data persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetUser retrieves the decision-relevant slice of a user record.
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	query := `
		SELECT id, organization_id, role, is_biller, is_supervisor, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u User
	var role string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID,
		&u.OrganizationID,
		&role,
		&u.IsBiller,
		&u.IsSupervisor,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Role = Role(role)
	if !u.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q for user %s", role, userID)
	}

	return &u, nil
}

// UpdateUserRole changes a user's base role.
func (s *Store) UpdateUserRole(ctx context.Context, userID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role: %s", role)
	}

	query := `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, string(role), time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}

	return nil
}

// GetClientOrganization returns the organization a client belongs to.
func (s *Store) GetClientOrganization(ctx context.Context, clientID string) (string, error) {
	query := `SELECT organization_id FROM clients WHERE id = $1`

	var orgID string
	err := s.db.QueryRowContext(ctx, query, clientID).Scan(&orgID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("client not found: %s", clientID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get client: %w", err)
	}

	return orgID, nil
}

// AssignmentExists reports whether an active coach-client assignment
// exists for the exact (coachID, clientID) pair.
func (s *Store) AssignmentExists(ctx context.Context, coachID, clientID string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM client_assignments
		WHERE coach_id = $1 AND client_id = $2
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, coachID, clientID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}

	return count > 0, nil
}

// ListAssignedClients returns the ids of all clients assigned to a coach.
func (s *Store) ListAssignedClients(ctx context.Context, coachID string) ([]string, error) {
	query := `
		SELECT client_id
		FROM client_assignments
		WHERE coach_id = $1
		ORDER BY assigned_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, coachID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned clients: %w", err)
	}
	defer rows.Close()

	var clientIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		clientIDs = append(clientIDs, id)
	}

	return clientIDs, rows.Err()
}

// CreateAssignment inserts a coach-client assignment. The assignment
// is scoped to the client's organization, which the caller resolves
// beforehand via GetClientOrganization.
func (s *Store) CreateAssignment(ctx context.Context, assignment *ClientAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}

	query := `
		INSERT INTO client_assignments (id, organization_id, client_id, coach_id, assignment_type, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (coach_id, client_id) DO UPDATE
		SET assignment_type = EXCLUDED.assignment_type,
		    assigned_by = EXCLUDED.assigned_by,
		    assigned_at = EXCLUDED.assigned_at
	`

	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.OrganizationID,
		assignment.ClientID,
		assignment.CoachID,
		string(assignment.Type),
		assignment.AssignedBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	assignment.AssignedAt = now
	return nil
}

// DeleteAssignment removes a coach-client assignment.
func (s *Store) DeleteAssignment(ctx context.Context, coachID, clientID string) error {
	query := `DELETE FROM client_assignments WHERE coach_id = $1 AND client_id = $2`
	_, err := s.db.ExecContext(ctx, query, coachID, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

// ListAssignments returns full assignment records for a coach.
func (s *Store) ListAssignments(ctx context.Context, coachID string) ([]ClientAssignment, error) {
	query := `
		SELECT id, organization_id, client_id, coach_id, assignment_type, assigned_by, assigned_at
		FROM client_assignments
		WHERE coach_id = $1
		ORDER BY assigned_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, coachID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []ClientAssignment
	for rows.Next() {
		var a ClientAssignment
		var assignmentType string
		err := rows.Scan(
			&a.ID,
			&a.OrganizationID,
			&a.ClientID,
			&a.CoachID,
			&assignmentType,
			&a.AssignedBy,
			&a.AssignedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Type = AssignmentType(assignmentType)
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}
