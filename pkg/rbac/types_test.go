package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Owner is built from the full catalog, so it must hold every
// permission any role anywhere can hold.
func TestOwnerIsPermissionComplete(t *testing.T) {
	for _, perm := range AllPermissions() {
		assert.True(t, RoleGrants(RoleOwner, perm), "owner missing %s", perm)
	}
}

func TestOwnerIsSupersetOfEveryRole(t *testing.T) {
	for _, role := range AllRoles() {
		for _, perm := range RolePermissions(role) {
			assert.True(t, RoleGrants(RoleOwner, perm), "owner missing %s held by %s", perm, role)
		}
	}
}

// The biller additive set must also stay inside the catalog, or a
// biller could hold a permission the owner lacks.
func TestBillerSetWithinCatalog(t *testing.T) {
	for _, perm := range AllPermissions() {
		if BillerGrants(perm) {
			assert.True(t, RoleGrants(RoleOwner, perm), "biller grants %s outside catalog", perm)
		}
	}
}

func TestRoleHierarchy(t *testing.T) {
	// Admin is a subset of owner minus ownership-level billing.
	assert.False(t, RoleGrants(RoleAdmin, PermManageSubscription))
	assert.False(t, RoleGrants(RoleAdmin, PermPurchaseAddons))
	assert.False(t, RoleGrants(RoleAdmin, PermManageRoles))
	assert.True(t, RoleGrants(RoleAdmin, PermManageIntegrations))

	// Manager runs the team but not billing or system integrations.
	assert.True(t, RoleGrants(RoleManager, PermManageCoachAssignments))
	assert.False(t, RoleGrants(RoleManager, PermManageBilling))
	assert.False(t, RoleGrants(RoleManager, PermManageIntegrations))

	// Coach works assigned clients; never org-wide client lists.
	assert.True(t, RoleGrants(RoleCoach, PermViewAssignedClients))
	assert.True(t, RoleGrants(RoleCoach, PermViewPrivateNotes))
	assert.False(t, RoleGrants(RoleCoach, PermViewAllClients))
	assert.False(t, RoleGrants(RoleCoach, PermDeleteClient))
	assert.False(t, RoleGrants(RoleCoach, PermViewFinancialReports))

	// Support schedules and communicates, nothing client-data.
	assert.True(t, RoleGrants(RoleSupport, PermBookSession))
	assert.True(t, RoleGrants(RoleSupport, PermSendWhatsApp))
	assert.False(t, RoleGrants(RoleSupport, PermViewAssignedClients))
	assert.False(t, RoleGrants(RoleSupport, PermViewSessionNotes))
}

func TestBillerAdditiveSet(t *testing.T) {
	assert.True(t, BillerGrants(PermViewFinancialReports))
	assert.True(t, BillerGrants(PermCreateInvoice))
	assert.True(t, BillerGrants(PermIssueRefund))

	// Biller is billing only; it never grants client or team access.
	assert.False(t, BillerGrants(PermViewAllClients))
	assert.False(t, BillerGrants(PermInviteTeamMember))
	assert.False(t, BillerGrants(PermManageSubscription))
}

func TestRoleValid(t *testing.T) {
	for _, role := range AllRoles() {
		assert.True(t, role.Valid())
	}
	assert.False(t, Role("superadmin").Valid())
	assert.False(t, Role("").Valid())
}

func TestAssignmentTypeValid(t *testing.T) {
	assert.True(t, AssignmentPrimary.Valid())
	assert.True(t, AssignmentSecondary.Valid())
	assert.True(t, AssignmentSupervisor.Valid())
	assert.False(t, AssignmentType("tertiary").Valid())
}

func TestRoleMetadataComplete(t *testing.T) {
	for _, role := range AllRoles() {
		assert.NotEmpty(t, RoleLabels[role], "missing label for %s", role)
		assert.NotEmpty(t, RoleDescriptions[role], "missing description for %s", role)
	}
}

func TestPermissionDeniedError(t *testing.T) {
	err := &PermissionDeniedError{UserID: "u-1", Permission: PermManageIntegrations}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manage_integrations")
	assert.True(t, IsPermissionDenied(err))
	assert.False(t, IsPermissionDenied(assert.AnError))
}
