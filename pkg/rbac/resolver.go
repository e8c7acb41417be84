package rbac

import (
	"context"
	"database/sql"
	"time"

	"github.com/coachdesk/coachdesk/pkg/observability"
)

// Resolver answers permission questions for users. All public methods
// fail closed: any persistence failure degrades to a denial (or an
// empty result) rather than an error the caller has to handle, so
// callers can treat the resolver as a non-throwing oracle.
type Resolver struct {
	store   *Store
	cache   *userCache
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewResolver creates a permission resolver. cacheTTL bounds how stale
// a cached user record may be; zero disables the cache. metrics may be
// nil.
func NewResolver(db *sql.DB, cacheTTL time.Duration, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		store:   NewStore(db),
		cache:   newUserCache(cacheTTL),
		logger:  logger,
		metrics: metrics,
	}
}

// getUser fetches the user through the cache.
func (r *Resolver) getUser(ctx context.Context, userID string) (*User, error) {
	if user, ok := r.cache.get(userID); ok {
		return user, nil
	}

	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.cache.set(user)
	return user, nil
}

// HasPermission reports whether the user holds the permission, either
// through their base role or through the biller modifier. Lookup
// failures and unknown users deny.
func (r *Resolver) HasPermission(ctx context.Context, userID string, perm Permission) bool {
	user, err := r.getUser(ctx, userID)
	if err != nil {
		r.logger.WithError(err).
			WithField("user_id", userID).
			WithField("permission", string(perm)).
			Warn("permission check failed, denying")
		if r.metrics != nil {
			r.metrics.ObservePermissionCheck("unknown", false, string(perm))
		}
		return false
	}

	allowed := RoleGrants(user.Role, perm)
	if !allowed && user.IsBiller {
		allowed = BillerGrants(perm)
	}

	if r.metrics != nil {
		r.metrics.ObservePermissionCheck(string(user.Role), allowed, string(perm))
	}

	return allowed
}

// RequirePermission returns a *PermissionDeniedError when the user
// does not hold the permission. Infrastructure failures during the
// underlying check surface as the same denial.
func (r *Resolver) RequirePermission(ctx context.Context, userID string, perm Permission) error {
	if r.HasPermission(ctx, userID, perm) {
		return nil
	}
	return &PermissionDeniedError{UserID: userID, Permission: perm}
}

// CurrentRole returns the user's role. The second return is false on
// any lookup failure; callers driving role-dependent UI should treat
// that as "no role", not as an error state.
func (r *Resolver) CurrentRole(ctx context.Context, userID string) (Role, bool) {
	user, err := r.getUser(ctx, userID)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Debug("role lookup failed")
		return "", false
	}
	return user.Role, true
}

// CanAccessClient reports whether the user may see the client's data.
// Owners, admins and managers have organization-wide visibility.
// Coaches see only explicitly assigned clients. Support has broad read
// visibility; row-level restrictions such as private notes are
// enforced by the persistence layer's own policies.
func (r *Resolver) CanAccessClient(ctx context.Context, userID, clientID string) bool {
	user, err := r.getUser(ctx, userID)
	if err != nil {
		r.logger.WithError(err).
			WithField("user_id", userID).
			WithField("client_id", clientID).
			Warn("client access check failed, denying")
		return false
	}

	var allowed bool
	switch user.Role {
	case RoleOwner, RoleAdmin, RoleManager:
		allowed = true
	case RoleCoach:
		exists, err := r.store.AssignmentExists(ctx, userID, clientID)
		if err != nil {
			r.logger.WithError(err).
				WithField("user_id", userID).
				WithField("client_id", clientID).
				Warn("assignment lookup failed, denying")
			exists = false
		}
		allowed = exists
	case RoleSupport:
		allowed = true
	}

	if r.metrics != nil {
		r.metrics.ClientAccessChecksTotal.WithLabelValues(string(user.Role), boolLabel(allowed)).Inc()
	}

	return allowed
}

// AssignedClients returns all client ids explicitly assigned to a
// coach. Returns an empty slice on any failure.
func (r *Resolver) AssignedClients(ctx context.Context, coachID string) []string {
	clientIDs, err := r.store.ListAssignedClients(ctx, coachID)
	if err != nil {
		r.logger.WithError(err).WithField("coach_id", coachID).Warn("failed to list assigned clients")
		return []string{}
	}
	if clientIDs == nil {
		return []string{}
	}
	return clientIDs
}

// AssignClientToCoach creates an assignment scoped to the client's
// organization. Failures are reported in the result, never raised.
func (r *Resolver) AssignClientToCoach(ctx context.Context, clientID, coachID, assignedBy string, assignmentType AssignmentType) AssignmentResult {
	if !assignmentType.Valid() {
		return AssignmentResult{Success: false, Error: "invalid assignment type: " + string(assignmentType)}
	}

	orgID, err := r.store.GetClientOrganization(ctx, clientID)
	if err != nil {
		r.logger.WithError(err).WithField("client_id", clientID).Warn("assignment failed: client lookup")
		return AssignmentResult{Success: false, Error: "client not found"}
	}

	assignment := &ClientAssignment{
		OrganizationID: orgID,
		ClientID:       clientID,
		CoachID:        coachID,
		Type:           assignmentType,
		AssignedBy:     assignedBy,
	}

	if err := r.store.CreateAssignment(ctx, assignment); err != nil {
		r.logger.WithError(err).
			WithField("client_id", clientID).
			WithField("coach_id", coachID).
			Error("failed to create assignment")
		return AssignmentResult{Success: false, Error: "failed to assign client"}
	}

	return AssignmentResult{Success: true}
}

// RemoveClientAssignment deletes an assignment.
func (r *Resolver) RemoveClientAssignment(ctx context.Context, clientID, coachID string) AssignmentResult {
	if err := r.store.DeleteAssignment(ctx, coachID, clientID); err != nil {
		r.logger.WithError(err).
			WithField("client_id", clientID).
			WithField("coach_id", coachID).
			Error("failed to remove assignment")
		return AssignmentResult{Success: false, Error: "failed to remove assignment"}
	}
	return AssignmentResult{Success: true}
}

// ChangeRole updates a user's base role and invalidates the cached
// record. Unlike the decision methods this returns the error: role
// changes are administrative writes, not checks.
func (r *Resolver) ChangeRole(ctx context.Context, userID string, role Role) error {
	if err := r.store.UpdateUserRole(ctx, userID, role); err != nil {
		return err
	}
	r.cache.invalidate(userID)
	return nil
}

// InvalidateUser drops the cached record for a user.
func (r *Resolver) InvalidateUser(userID string) {
	r.cache.invalidate(userID)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
