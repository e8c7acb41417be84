package rbac

import (
	"time"
)

// Role represents a user's base role within an organization.
// Exactly one role is assigned per user.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCoach   Role = "coach"
	RoleSupport Role = "support"
)

// AllRoles returns the five defined roles.
func AllRoles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleManager, RoleCoach, RoleSupport}
}

// Valid reports whether r is one of the five defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleCoach, RoleSupport:
		return true
	}
	return false
}

// Permission represents a single named capability checked before a
// privileged action. The catalog is closed: a permission that is not
// declared here does not exist, and a typo fails to compile at the
// call site rather than silently evaluating to "denied".
type Permission string

// Account and billing
const (
	PermViewBilling          Permission = "view_billing"
	PermManageBilling        Permission = "manage_billing"
	PermViewInvoices         Permission = "view_invoices"
	PermManageSubscription   Permission = "manage_subscription"
	PermPurchaseAddons       Permission = "purchase_addons"
	PermViewFinancialReports Permission = "view_financial_reports"
	PermManagePaymentMethods Permission = "manage_payment_methods"
)

// Team management
const (
	PermViewTeam               Permission = "view_team"
	PermInviteTeamMember       Permission = "invite_team_member"
	PermRemoveTeamMember       Permission = "remove_team_member"
	PermChangeMemberRole       Permission = "change_member_role"
	PermManageCoachAssignments Permission = "manage_coach_assignments"
	PermViewTeamActivity       Permission = "view_team_activity"
)

// Client data
const (
	PermViewAllClients      Permission = "view_all_clients"
	PermViewAssignedClients Permission = "view_assigned_clients"
	PermCreateClient        Permission = "create_client"
	PermEditClient          Permission = "edit_client"
	PermDeleteClient        Permission = "delete_client"
	PermArchiveClient       Permission = "archive_client"
	PermExportClients       Permission = "export_clients"
	PermImportClients       Permission = "import_clients"
)

// Sessions and notes
const (
	PermViewSessions       Permission = "view_sessions"
	PermCreateSession      Permission = "create_session"
	PermEditSession        Permission = "edit_session"
	PermDeleteSession      Permission = "delete_session"
	PermViewSessionNotes   Permission = "view_session_notes"
	PermCreateSessionNotes Permission = "create_session_notes"
	PermEditSessionNotes   Permission = "edit_session_notes"
	PermViewPrivateNotes   Permission = "view_private_notes"
)

// Scheduling
const (
	PermViewCalendar       Permission = "view_calendar"
	PermManageAvailability Permission = "manage_availability"
	PermBookSession        Permission = "book_session"
	PermCancelSession      Permission = "cancel_session"
	PermRescheduleSession  Permission = "reschedule_session"
	PermManageBookingPages Permission = "manage_booking_pages"
)

// Client billing
const (
	PermCreateInvoice      Permission = "create_invoice"
	PermSendInvoice        Permission = "send_invoice"
	PermRecordPayment      Permission = "record_payment"
	PermIssueRefund        Permission = "issue_refund"
	PermViewClientPayments Permission = "view_client_payments"
	PermManagePackages     Permission = "manage_packages"
)

// Communications
const (
	PermSendEmail          Permission = "send_email"
	PermSendSMS            Permission = "send_sms"
	PermSendWhatsApp       Permission = "send_whatsapp"
	PermViewMessageHistory Permission = "view_message_history"
	PermManageTemplates    Permission = "manage_templates"
)

// Programs and resources
const (
	PermViewPrograms   Permission = "view_programs"
	PermCreateProgram  Permission = "create_program"
	PermEditProgram    Permission = "edit_program"
	PermDeleteProgram  Permission = "delete_program"
	PermAssignProgram  Permission = "assign_program"
	PermUploadResource Permission = "upload_resource"
	PermDeleteResource Permission = "delete_resource"
	PermShareResource  Permission = "share_resource"
)

// Analytics
const (
	PermViewDashboard Permission = "view_dashboard"
	PermViewAnalytics Permission = "view_analytics"
	PermViewReports   Permission = "view_reports"
	PermExportReports Permission = "export_reports"
)

// System settings
const (
	PermManageOrganizationSettings Permission = "manage_organization_settings"
	PermManageIntegrations         Permission = "manage_integrations"
	PermManageAISettings           Permission = "manage_ai_settings"
	PermManageRoles                Permission = "manage_roles"
	PermViewAuditLog               Permission = "view_audit_log"
)

// AllPermissions returns the full permission catalog. The owner role is
// built from this list rather than a hand-curated set, so owner is
// permission-complete by construction.
func AllPermissions() []Permission {
	return []Permission{
		PermViewBilling, PermManageBilling, PermViewInvoices,
		PermManageSubscription, PermPurchaseAddons, PermViewFinancialReports,
		PermManagePaymentMethods,

		PermViewTeam, PermInviteTeamMember, PermRemoveTeamMember,
		PermChangeMemberRole, PermManageCoachAssignments, PermViewTeamActivity,

		PermViewAllClients, PermViewAssignedClients, PermCreateClient,
		PermEditClient, PermDeleteClient, PermArchiveClient,
		PermExportClients, PermImportClients,

		PermViewSessions, PermCreateSession, PermEditSession,
		PermDeleteSession, PermViewSessionNotes, PermCreateSessionNotes,
		PermEditSessionNotes, PermViewPrivateNotes,

		PermViewCalendar, PermManageAvailability, PermBookSession,
		PermCancelSession, PermRescheduleSession, PermManageBookingPages,

		PermCreateInvoice, PermSendInvoice, PermRecordPayment,
		PermIssueRefund, PermViewClientPayments, PermManagePackages,

		PermSendEmail, PermSendSMS, PermSendWhatsApp,
		PermViewMessageHistory, PermManageTemplates,

		PermViewPrograms, PermCreateProgram, PermEditProgram,
		PermDeleteProgram, PermAssignProgram, PermUploadResource,
		PermDeleteResource, PermShareResource,

		PermViewDashboard, PermViewAnalytics, PermViewReports,
		PermExportReports,

		PermManageOrganizationSettings, PermManageIntegrations,
		PermManageAISettings, PermManageRoles, PermViewAuditLog,
	}
}

// permissionSet builds a membership set from a permission list.
func permissionSet(perms []Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

var (
	ownerPermissions = permissionSet(AllPermissions())

	adminPermissions = permissionSet([]Permission{
		PermViewBilling, PermManageBilling, PermViewInvoices,
		PermViewFinancialReports,

		PermViewTeam, PermInviteTeamMember, PermRemoveTeamMember,
		PermChangeMemberRole, PermManageCoachAssignments, PermViewTeamActivity,

		PermViewAllClients, PermViewAssignedClients, PermCreateClient,
		PermEditClient, PermDeleteClient, PermArchiveClient,
		PermExportClients, PermImportClients,

		PermViewSessions, PermCreateSession, PermEditSession,
		PermDeleteSession, PermViewSessionNotes, PermCreateSessionNotes,
		PermEditSessionNotes, PermViewPrivateNotes,

		PermViewCalendar, PermManageAvailability, PermBookSession,
		PermCancelSession, PermRescheduleSession, PermManageBookingPages,

		PermCreateInvoice, PermSendInvoice, PermRecordPayment,
		PermIssueRefund, PermViewClientPayments, PermManagePackages,

		PermSendEmail, PermSendSMS, PermSendWhatsApp,
		PermViewMessageHistory, PermManageTemplates,

		PermViewPrograms, PermCreateProgram, PermEditProgram,
		PermDeleteProgram, PermAssignProgram, PermUploadResource,
		PermDeleteResource, PermShareResource,

		PermViewDashboard, PermViewAnalytics, PermViewReports,
		PermExportReports,

		PermManageOrganizationSettings, PermManageIntegrations,
		PermManageAISettings, PermViewAuditLog,
	})

	managerPermissions = permissionSet([]Permission{
		PermViewTeam, PermManageCoachAssignments, PermViewTeamActivity,

		PermViewAllClients, PermViewAssignedClients, PermCreateClient,
		PermEditClient, PermArchiveClient, PermExportClients,
		PermImportClients,

		PermViewSessions, PermCreateSession, PermEditSession,
		PermViewSessionNotes, PermCreateSessionNotes, PermEditSessionNotes,

		PermViewCalendar, PermManageAvailability, PermBookSession,
		PermCancelSession, PermRescheduleSession, PermManageBookingPages,

		PermViewClientPayments, PermManagePackages,

		PermSendEmail, PermSendSMS, PermSendWhatsApp,
		PermViewMessageHistory, PermManageTemplates,

		PermViewPrograms, PermCreateProgram, PermEditProgram,
		PermAssignProgram, PermUploadResource, PermShareResource,

		PermViewDashboard, PermViewAnalytics, PermViewReports,
	})

	coachPermissions = permissionSet([]Permission{
		PermViewAssignedClients, PermEditClient,

		PermViewSessions, PermCreateSession, PermEditSession,
		PermViewSessionNotes, PermCreateSessionNotes, PermEditSessionNotes,
		PermViewPrivateNotes,

		PermViewCalendar, PermManageAvailability, PermBookSession,
		PermCancelSession, PermRescheduleSession,

		PermSendEmail, PermViewMessageHistory,

		PermViewPrograms, PermAssignProgram, PermUploadResource,
		PermShareResource,

		PermViewDashboard,
	})

	supportPermissions = permissionSet([]Permission{
		PermViewCalendar, PermBookSession, PermCancelSession,
		PermRescheduleSession,

		PermSendEmail, PermSendSMS, PermSendWhatsApp,
		PermViewMessageHistory,

		PermViewDashboard,
	})

	// billerPermissions is granted additively to any user with the
	// is_biller modifier set, regardless of base role.
	billerPermissions = permissionSet([]Permission{
		PermViewBilling, PermManageBilling, PermViewInvoices,
		PermViewFinancialReports, PermManagePaymentMethods,
		PermCreateInvoice, PermSendInvoice, PermRecordPayment,
		PermIssueRefund, PermViewClientPayments,
	})
)

// rolePermissions maps each role to its base permission set.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleOwner:   ownerPermissions,
	RoleAdmin:   adminPermissions,
	RoleManager: managerPermissions,
	RoleCoach:   coachPermissions,
	RoleSupport: supportPermissions,
}

// RoleGrants reports whether the given role's base permission set
// contains the permission. Modifiers are not considered.
func RoleGrants(role Role, perm Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// BillerGrants reports whether the biller modifier's additive set
// contains the permission.
func BillerGrants(perm Permission) bool {
	_, ok := billerPermissions[perm]
	return ok
}

// RolePermissions returns a copy of the role's base permission list.
func RolePermissions(role Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for _, p := range AllPermissions() {
		if _, member := set[p]; member {
			perms = append(perms, p)
		}
	}
	return perms
}

// RoleLabels maps roles to short human-readable names. Presentation
// only; never consulted by decision logic.
var RoleLabels = map[Role]string{
	RoleOwner:   "Owner",
	RoleAdmin:   "Admin",
	RoleManager: "Manager",
	RoleCoach:   "Coach",
	RoleSupport: "Support Staff",
}

// RoleDescriptions maps roles to one-line descriptions for role pickers.
var RoleDescriptions = map[Role]string{
	RoleOwner:   "Full access to the organization, including billing and subscription",
	RoleAdmin:   "Manages team, clients and settings; cannot change the subscription",
	RoleManager: "Runs day-to-day coaching operations and scheduling",
	RoleCoach:   "Works with assigned clients, sessions and notes",
	RoleSupport: "Handles scheduling and client communication",
}

// AssignmentType classifies a coach-client assignment.
type AssignmentType string

const (
	AssignmentPrimary    AssignmentType = "primary"
	AssignmentSecondary  AssignmentType = "secondary"
	AssignmentSupervisor AssignmentType = "supervisor"
)

// Valid reports whether t is a known assignment type.
func (t AssignmentType) Valid() bool {
	switch t {
	case AssignmentPrimary, AssignmentSecondary, AssignmentSupervisor:
		return true
	}
	return false
}

// User is the slice of the user record the resolver needs for
// decisions. Rows are parsed at the store boundary so decision logic
// stays fully typed.
type User struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Role           Role      `json:"role"`
	IsBiller       bool      `json:"is_biller"`
	IsSupervisor   bool      `json:"is_supervisor"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ClientAssignment links a coach to a client within an organization.
type ClientAssignment struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	ClientID       string         `json:"client_id"`
	CoachID        string         `json:"coach_id"`
	Type           AssignmentType `json:"type"`
	AssignedBy     string         `json:"assigned_by"`
	AssignedAt     time.Time      `json:"assigned_at"`
}

// AssignmentResult is returned by assignment operations instead of an
// error so callers can surface the message without a conditional on
// error types.
type AssignmentResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PermissionDeniedError is returned by RequirePermission when the user
// does not hold the permission. Infrastructure failures during the
// check surface the same way; the resolver deliberately fails closed
// and does not distinguish the two for callers.
type PermissionDeniedError struct {
	UserID     string
	Permission Permission
}

func (e *PermissionDeniedError) Error() string {
	return "permission denied: " + string(e.Permission)
}

// IsPermissionDenied checks if an error is a permission denial.
func IsPermissionDenied(err error) bool {
	_, ok := err.(*PermissionDeniedError)
	return ok
}
