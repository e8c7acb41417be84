package orgs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when an organization does not exist.
var ErrNotFound = errors.New("organization not found")

// IsNotFound reports whether err means a missing organization.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store provides persistence for organization records.
type Store struct {
	db *sql.DB
}

// NewStore creates a new organization store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetOrganization fetches an organization by id.
func (s *Store) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, plan, subscription_status, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, orgID).Scan(&org.ID, &org.Name, &org.Slug, &org.Plan, &org.SubscriptionStatus, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetOrganizationBySlug fetches an organization by slug.
func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, plan, subscription_status, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`, slug).Scan(&org.ID, &org.Name, &org.Slug, &org.Plan, &org.SubscriptionStatus, &org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// UpdateSubscriptionStatus changes an organization's subscription
// status.
func (s *Store) UpdateSubscriptionStatus(ctx context.Context, orgID string, status SubscriptionStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE organizations
		SET subscription_status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, orgID)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, orgID)
	}
	return nil
}

// ListOrganizationIDs returns the ids of all organizations. Used by
// the monitor worker's periodic sweeps.
func (s *Store) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM organizations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
