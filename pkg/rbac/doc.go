// Package rbac provides role-based access control for the CoachDesk
// coaching CRM.
//
// # Overview
//
// Every user in an organization holds exactly one of five roles:
//
//	owner    - Full control, including subscription and billing
//	admin    - Full operational control, minus ownership-level billing
//	manager  - Team and client operations, no billing management
//	coach    - Works with explicitly assigned clients only
//	support  - Scheduling and communications on behalf of coaches
//
// Role capabilities are fixed, compile-time permission tables; there
// are no custom roles. Two additive modifiers refine a role:
//
//	biller     - Grants the billing permission set on top of any role
//	supervisor - Marks a coach as reviewable-by; grants no permissions
//
// The supervisor flag widens nothing here. Which rows a supervisor may
// read (for example another coach's session notes) is decided by the
// data layer's own row policies.
//
// # Permission Checking
//
// The Resolver is the only decision surface. It is deliberately
// non-throwing: infrastructure failures become denials, never errors
// the caller must branch on.
//
//	resolver := rbac.NewResolver(db, 5*time.Minute, logger, metrics)
//
//	if resolver.HasPermission(ctx, userID, rbac.PermDeleteClients) {
//		// allowed
//	}
//
//	if err := resolver.RequirePermission(ctx, userID, rbac.PermManageIntegrations); err != nil {
//		// err is a *rbac.PermissionDeniedError naming the permission
//	}
//
// # Client Scoping
//
// CanAccessClient implements the visibility rule: owner, admin and
// manager see every client in the organization; a coach sees only
// clients with an assignment row; support has broad read visibility.
//
//	if resolver.CanAccessClient(ctx, coachID, clientID) { ... }
//	clientIDs := resolver.AssignedClients(ctx, coachID)
//
// Assignments are written through AssignClientToCoach and
// RemoveClientAssignment, which report failure in an AssignmentResult
// instead of returning an error:
//
//	res := resolver.AssignClientToCoach(ctx, clientID, coachID, adminID, rbac.AssignmentPrimary)
//	if !res.Success {
//		// res.Error is a user-presentable message
//	}
//
// # Caching
//
// User records are cached in an expirable LRU keyed by user id. Role
// changes made through ChangeRole invalidate the cached record; role
// changes made elsewhere converge within the TTL.
//
// # Database Schema
//
// Three tables back the package: users, clients and
// client_assignments. Migrations are provided in migrations.go:
//
//	err := rbac.RunMigrations(ctx, db)
//
// # Related Packages
//
//   - pkg/usage: per-organization resource limits and metering
//   - pkg/orgs: organization records and subscription status
//   - pkg/middleware: request authentication and org context
package rbac
