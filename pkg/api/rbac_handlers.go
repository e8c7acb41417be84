package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coachdesk/coachdesk/pkg/auth"
	"github.com/coachdesk/coachdesk/pkg/httputil"
	"github.com/coachdesk/coachdesk/pkg/middleware"
	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/rbac"
)

// RBACHandlers exposes permission and assignment operations.
type RBACHandlers struct {
	resolver *rbac.Resolver
	audit    *auth.AuditLogger
	logger   *observability.Logger
}

// NewRBACHandlers creates a new RBACHandlers.
func NewRBACHandlers(resolver *rbac.Resolver, audit *auth.AuditLogger, logger *observability.Logger) *RBACHandlers {
	return &RBACHandlers{
		resolver: resolver,
		audit:    audit,
		logger:   logger,
	}
}

// RegisterRoutes registers permission and assignment routes.
func (h *RBACHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/permissions/check", h.CheckPermission).Methods("GET")
	router.HandleFunc("/me/role", h.GetMyRole).Methods("GET")
	router.HandleFunc("/users/{user_id}/role", h.ChangeRole).Methods("PUT")
	router.HandleFunc("/clients/{client_id}/access", h.CheckClientAccess).Methods("GET")
	router.HandleFunc("/assignments", h.CreateAssignment).Methods("POST")
	router.HandleFunc("/assignments", h.RemoveAssignment).Methods("DELETE")
	router.HandleFunc("/assignments/{coach_id}", h.ListAssignments).Methods("GET")
}

// CheckPermission reports whether the authenticated user holds a
// permission. The result is a plain boolean; a missing or unknown
// permission string simply checks false.
func (h *RBACHandlers) CheckPermission(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	permission := httputil.ParseQueryString(r, "permission", "")
	if !httputil.RequireNonEmpty(w, permission, "permission") {
		return
	}

	// Managers and up may check on behalf of other users.
	userID := authCtx.UserID
	if target := httputil.ParseQueryString(r, "user_id", ""); target != "" && target != authCtx.UserID {
		if err := h.resolver.RequirePermission(r.Context(), authCtx.UserID, rbac.PermViewTeam); err != nil {
			httputil.WriteForbidden(w, err.Error())
			return
		}
		userID = target
	}

	granted := h.resolver.HasPermission(r.Context(), userID, rbac.Permission(permission))
	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":    userID,
		"permission": permission,
		"granted":    granted,
	})
}

// GetMyRole returns the authenticated user's role and its metadata.
func (h *RBACHandlers) GetMyRole(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	role, ok := h.resolver.CurrentRole(r.Context(), authCtx.UserID)
	if !ok {
		httputil.WriteNotFoundError(w, "user not found")
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"role":        string(role),
		"label":       rbac.RoleLabels[role],
		"description": rbac.RoleDescriptions[role],
	})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole updates a user's role. Requires the manage_roles
// permission; the change is audit-logged.
func (h *RBACHandlers) ChangeRole(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	targetID, ok := httputil.ParsePathStringOrError(w, r, "user_id")
	if !ok {
		return
	}

	if err := h.resolver.RequirePermission(r.Context(), authCtx.UserID, rbac.PermChangeMemberRole); err != nil {
		httputil.WriteForbidden(w, err.Error())
		return
	}

	var req changeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role := rbac.Role(req.Role)
	if !role.Valid() {
		httputil.WriteValidationError(w, "invalid role: "+req.Role)
		return
	}

	if err := h.resolver.ChangeRole(r.Context(), targetID, role); err != nil {
		h.auditRecord(r, authCtx, auth.ActionRoleChange, "user", targetID, auth.StatusFailure, err)
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditRecord(r, authCtx, auth.ActionRoleChange, "user", targetID, auth.StatusSuccess, nil)
	httputil.WriteSuccess(w, map[string]string{
		"user_id": targetID,
		"role":    string(role),
	})
}

// CheckClientAccess reports whether the authenticated user can access
// a client record.
func (h *RBACHandlers) CheckClientAccess(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	clientID, ok := httputil.ParsePathStringOrError(w, r, "client_id")
	if !ok {
		return
	}

	allowed := h.resolver.CanAccessClient(r.Context(), authCtx.UserID, clientID)
	httputil.WriteSuccess(w, map[string]interface{}{
		"client_id": clientID,
		"allowed":   allowed,
	})
}

type assignmentRequest struct {
	ClientID       string `json:"client_id"`
	CoachID        string `json:"coach_id"`
	AssignmentType string `json:"assignment_type"`
}

// CreateAssignment assigns a client to a coach. Requires the
// manage_coach_assignments permission.
func (h *RBACHandlers) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	if err := h.resolver.RequirePermission(r.Context(), authCtx.UserID, rbac.PermManageCoachAssignments); err != nil {
		httputil.WriteForbidden(w, err.Error())
		return
	}

	var req assignmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ClientID, "client_id") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CoachID, "coach_id") {
		return
	}
	if req.AssignmentType == "" {
		req.AssignmentType = string(rbac.AssignmentPrimary)
	}

	result := h.resolver.AssignClientToCoach(r.Context(), req.ClientID, req.CoachID, authCtx.UserID, rbac.AssignmentType(req.AssignmentType))
	if !result.Success {
		h.auditRecord(r, authCtx, auth.ActionAssignmentCreate, "client_assignment", req.ClientID, auth.StatusFailure, nil)
		httputil.WriteValidationError(w, result.Error)
		return
	}

	h.auditRecord(r, authCtx, auth.ActionAssignmentCreate, "client_assignment", req.ClientID, auth.StatusSuccess, nil)
	httputil.WriteCreated(w, result)
}

// RemoveAssignment removes a coach-client assignment. Requires the
// manage_coach_assignments permission.
func (h *RBACHandlers) RemoveAssignment(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	if err := h.resolver.RequirePermission(r.Context(), authCtx.UserID, rbac.PermManageCoachAssignments); err != nil {
		httputil.WriteForbidden(w, err.Error())
		return
	}

	var req assignmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ClientID, "client_id") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CoachID, "coach_id") {
		return
	}

	result := h.resolver.RemoveClientAssignment(r.Context(), req.ClientID, req.CoachID)
	if !result.Success {
		httputil.WriteValidationError(w, result.Error)
		return
	}

	h.auditRecord(r, authCtx, auth.ActionAssignmentRemove, "client_assignment", req.ClientID, auth.StatusSuccess, nil)
	httputil.WriteSuccess(w, result)
}

// ListAssignments returns the client IDs assigned to a coach. Coaches
// may list their own; listing another coach requires team visibility.
func (h *RBACHandlers) ListAssignments(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	coachID, ok := httputil.ParsePathStringOrError(w, r, "coach_id")
	if !ok {
		return
	}

	if coachID != authCtx.UserID {
		if err := h.resolver.RequirePermission(r.Context(), authCtx.UserID, rbac.PermViewTeam); err != nil {
			httputil.WriteForbidden(w, err.Error())
			return
		}
	}

	clientIDs := h.resolver.AssignedClients(r.Context(), coachID)
	httputil.WriteSuccess(w, map[string]interface{}{
		"coach_id":   coachID,
		"client_ids": clientIDs,
	})
}

func (h *RBACHandlers) auditRecord(r *http.Request, authCtx *middleware.AuthContext, action, resourceType, resourceID, status string, actionErr error) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordFromRequest(r, authCtx.OrganizationID, authCtx.UserID, action, resourceType, resourceID, status, actionErr); err != nil {
		h.logger.WithError(err).Warn("failed to write audit entry")
	}
}
