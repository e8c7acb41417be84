package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/coachdesk/coachdesk/pkg/async"
	"github.com/coachdesk/coachdesk/pkg/httputil"
	"github.com/coachdesk/coachdesk/pkg/middleware"
	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/usage"
)

// recordTimeout bounds the background writes behind the 202 counter
// endpoints.
const recordTimeout = 5 * time.Second

// UsageHandlers exposes usage limit checks, counters, and cost
// tracking for the authenticated organization.
type UsageHandlers struct {
	limiter *usage.Limiter
	logger  *observability.Logger
}

// NewUsageHandlers creates a new UsageHandlers.
func NewUsageHandlers(limiter *usage.Limiter, logger *observability.Logger) *UsageHandlers {
	return &UsageHandlers{
		limiter: limiter,
		logger:  logger,
	}
}

// RegisterRoutes registers usage routes.
func (h *UsageHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/usage/check", h.CheckLimit).Methods("GET")
	router.HandleFunc("/usage/increment", h.Increment).Methods("POST")
	router.HandleFunc("/usage/costs", h.TrackCost).Methods("POST")
	router.HandleFunc("/usage/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/usage/alerts", h.ListAlerts).Methods("GET")
}

// CheckLimit runs a usage check for a resource without consuming any
// allowance. The response body is the full check result, allowed or
// not; the HTTP status is always 200 so callers branch on the payload.
func (h *UsageHandlers) CheckLimit(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	resource := httputil.ParseQueryString(r, "resource", "")
	if !httputil.RequireNonEmpty(w, resource, "resource") {
		return
	}

	amount, err := httputil.ParseQueryInt64(r, "amount", 1)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	result := h.limiter.CheckLimit(r.Context(), authCtx.OrganizationID, usage.ResourceType(resource), amount)
	httputil.WriteSuccess(w, result)
}

type incrementRequest struct {
	Resource string            `json:"resource"`
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Increment records consumption of a resource. Recording is
// best-effort and never blocks the caller's action, so the response is
// 202 regardless of storage outcome.
func (h *UsageHandlers) Increment(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	var req incrementRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Resource, "resource") {
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	// Recording outlives the request, so the background context is the
	// parent here, not r.Context().
	orgID := authCtx.OrganizationID
	async.SafeGoNoError(context.Background(), recordTimeout, "usage increment", h.logger, func(ctx context.Context) {
		h.limiter.Increment(ctx, orgID, usage.ResourceType(req.Resource), req.Amount, req.Metadata)
	})
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

type trackCostRequest struct {
	CostType string            `json:"cost_type"`
	Quantity float64           `json:"quantity"`
	UnitCost float64           `json:"unit_cost"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TrackCost records a cost event (AI calls, SMS sends, transcription
// minutes) against the organization's running total.
func (h *UsageHandlers) TrackCost(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	var req trackCostRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CostType, "cost_type") {
		return
	}
	if req.Quantity <= 0 {
		httputil.WriteValidationError(w, "quantity must be positive")
		return
	}
	if req.UnitCost < 0 {
		httputil.WriteValidationError(w, "unit_cost must not be negative")
		return
	}

	orgID := authCtx.OrganizationID
	async.SafeGoNoError(context.Background(), recordTimeout, "cost tracking", h.logger, func(ctx context.Context) {
		h.limiter.TrackCost(ctx, orgID, req.CostType, req.Quantity, req.UnitCost, req.Metadata)
	})
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// GetSummary returns the organization's current-period usage counters
// and storage consumption.
func (h *UsageHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	summary := h.limiter.Summary(r.Context(), authCtx.OrganizationID)
	if summary == nil {
		httputil.WriteNotFoundError(w, "no usage recorded for the current period")
		return
	}
	httputil.WriteSuccess(w, summary)
}

// ListAlerts returns the threshold alerts raised for the current
// period.
func (h *UsageHandlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	alerts, err := h.limiter.Alerts(r.Context(), authCtx.OrganizationID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if alerts == nil {
		alerts = []*usage.Alert{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"alerts": alerts})
}
