package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/coachdesk/coachdesk/pkg/auth"
	"github.com/coachdesk/coachdesk/pkg/httputil"
	"github.com/coachdesk/coachdesk/pkg/middleware"
	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/rbac"
)

// KeyHandlers exposes API key lifecycle operations.
type KeyHandlers struct {
	keys     *auth.KeyStore
	resolver *rbac.Resolver
	audit    *auth.AuditLogger
	logger   *observability.Logger
}

// NewKeyHandlers creates a new KeyHandlers.
func NewKeyHandlers(keys *auth.KeyStore, resolver *rbac.Resolver, audit *auth.AuditLogger, logger *observability.Logger) *KeyHandlers {
	return &KeyHandlers{
		keys:     keys,
		resolver: resolver,
		audit:    audit,
		logger:   logger,
	}
}

// RegisterRoutes registers API key routes.
func (h *KeyHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/keys", h.CreateKey).Methods("POST")
	router.HandleFunc("/keys", h.ListKeys).Methods("GET")
	router.HandleFunc("/keys/{key_id}", h.RevokeKey).Methods("DELETE")
}

type createKeyRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type createKeyResponse struct {
	Key    *auth.APIKey `json:"key"`
	RawKey string       `json:"raw_key"`
}

// CreateKey issues a new API key for the authenticated user. The raw
// key appears only in this response.
func (h *KeyHandlers) CreateKey(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	var req createKeyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		httputil.WriteValidationError(w, "expires_at must be in the future")
		return
	}

	key, rawKey, err := h.keys.CreateKey(r.Context(), authCtx.UserID, authCtx.OrganizationID, req.Name, req.ExpiresAt)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditRecord(r, authCtx, auth.ActionKeyCreate, key.ID, auth.StatusSuccess)
	httputil.WriteCreated(w, createKeyResponse{Key: key, RawKey: rawKey})
}

// ListKeys lists the authenticated user's keys. Hashes are never
// serialized.
func (h *KeyHandlers) ListKeys(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	keys, err := h.keys.ListUserKeys(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if keys == nil {
		keys = []*auth.APIKey{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"keys": keys})
}

// RevokeKey permanently revokes a key. Users may revoke their own
// keys; revoking another user's key requires team management rights.
func (h *KeyHandlers) RevokeKey(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	keyID, ok := httputil.ParsePathStringOrError(w, r, "key_id")
	if !ok {
		return
	}

	owned := false
	keys, err := h.keys.ListUserKeys(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	for _, key := range keys {
		if key.ID == keyID {
			owned = true
			break
		}
	}

	if !owned {
		if err := h.resolver.RequirePermission(r.Context(), authCtx.UserID, rbac.PermRemoveTeamMember); err != nil {
			httputil.WriteForbidden(w, err.Error())
			return
		}
	}

	if err := h.keys.RevokeKey(r.Context(), keyID); err != nil {
		if err == auth.ErrKeyNotFound {
			httputil.WriteNotFoundError(w, "key not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditRecord(r, authCtx, auth.ActionKeyRevoke, keyID, auth.StatusSuccess)
	httputil.WriteNoContent(w)
}

func (h *KeyHandlers) auditRecord(r *http.Request, authCtx *middleware.AuthContext, action, resourceID, status string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordFromRequest(r, authCtx.OrganizationID, authCtx.UserID, action, "api_key", resourceID, status, nil); err != nil {
		h.logger.WithError(err).Warn("failed to write audit entry")
	}
}
