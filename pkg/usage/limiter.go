package usage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coachdesk/coachdesk/pkg/billing"
	"github.com/coachdesk/coachdesk/pkg/observability"
	"github.com/coachdesk/coachdesk/pkg/orgs"
)

// Denial messages shown directly to users. Each denial names its
// cause; callers never need to diagnose which gate fired.
const (
	msgOrgNotFound   = "Organization not found."
	msgInactive      = "Your subscription is not active. Please update your payment details to continue."
	msgInvalidPlan   = "Invalid subscription plan."
	msgCheckFailed   = "Error checking usage limits."
	msgFairUse       = "You have reached the fair use limit for %s on the %s plan. Please contact support to discuss your usage."
	msgUnavailable   = "%s is not available on the %s plan. Upgrade your plan to access it."
	msgLimitExceeded = "You have reached your %s limit (%d of %d). Upgrade your plan to continue."
	msgLimitOverage  = "You have reached your %s limit (%d of %d). Purchase an add-on for ₹%d or upgrade your plan."
)

// Limiter decides whether metered consumption is allowed, records it,
// and emits threshold alerts. CheckLimit never returns an error:
// every failure mode is expressed as a denial with a user-presentable
// message. Increment and TrackCost never fail outward either; a
// metering failure must not block an action that already happened.
type Limiter struct {
	orgs    *orgs.Store
	store   *Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewLimiter creates a usage limiter. metrics may be nil.
func NewLimiter(db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) *Limiter {
	return &Limiter{
		orgs:    orgs.NewStore(db),
		store:   NewStore(db),
		logger:  logger,
		metrics: metrics,
	}
}

func (l *Limiter) observe(resource ResourceType, allowed bool, reason string) {
	if l.metrics != nil {
		l.metrics.ObserveUsageCheck(string(resource), allowed, reason)
	}
}

// baseCost returns the plan's base monthly price, used to seed
// estimated_monthly_cost on new period rows.
func baseCost(plan orgs.Plan) float64 {
	return float64(billing.DefaultPlanPricing()[plan].BasePriceINR)
}

// CheckLimit reports whether the organization may consume amount
// units of resource this period. amount defaults to 1.
//
// Gates fire in order: organization missing, subscription inactive,
// unknown plan, unlimited (with fair-use ceiling), feature
// unavailable (limit 0), then limit arithmetic with overage pricing.
func (l *Limiter) CheckLimit(ctx context.Context, orgID string, resource ResourceType, amount int64) CheckResult {
	if amount <= 0 {
		amount = 1
	}

	org, err := l.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		if orgs.IsNotFound(err) {
			l.observe(resource, false, "org_not_found")
			return CheckResult{Allowed: false, Limit: 0, Message: msgOrgNotFound}
		}
		l.logger.WithError(err).WithField("org_id", orgID).Error("usage check failed: organization lookup")
		l.observe(resource, false, "error")
		return CheckResult{Allowed: false, Limit: 0, Message: msgCheckFailed}
	}

	if !org.SubscriptionStatus.Usable() {
		l.observe(resource, false, "inactive_subscription")
		return CheckResult{Allowed: false, Limit: 0, Message: msgInactive}
	}

	if !PlanKnown(org.Plan) {
		l.logger.WithField("org_id", orgID).WithField("plan", string(org.Plan)).Warn("organization has unrecognized plan")
		l.observe(resource, false, "invalid_plan")
		return CheckResult{Allowed: false, Limit: 0, Message: msgInvalidPlan}
	}

	rec, err := l.store.GetRecord(ctx, orgID)
	if err != nil {
		l.logger.WithError(err).WithField("org_id", orgID).Error("usage check failed: record lookup")
		l.observe(resource, false, "error")
		return CheckResult{Allowed: false, Limit: 0, Message: msgCheckFailed}
	}
	current := rec.Counter(resource)

	limit, ok := LimitFor(org.Plan, resource)
	if !ok {
		l.logger.WithField("plan", string(org.Plan)).
			WithField("resource", string(resource)).
			Warn("resource missing from plan limit table, treating as unavailable")
		l.observe(resource, false, "unavailable")
		return CheckResult{
			Allowed: false,
			Limit:   0,
			Current: current,
			Message: fmt.Sprintf(msgUnavailable, resourceLabel(resource), org.Plan),
		}
	}

	switch {
	case limit == Unlimited:
		ceiling, hasCeiling := FairUseCeiling(org.Plan, resource)
		if !hasCeiling {
			l.logger.WithField("plan", string(org.Plan)).
				WithField("resource", string(resource)).
				Debug("unlimited resource has no fair-use ceiling")
			l.observe(resource, true, "")
			return CheckResult{Allowed: true, Limit: Unlimited, Current: current, Remaining: -1}
		}
		if current+amount > ceiling {
			l.observe(resource, false, "fair_use")
			return CheckResult{
				Allowed:   false,
				Limit:     Unlimited,
				Current:   current,
				Remaining: -1,
				Message:   fmt.Sprintf(msgFairUse, resourceLabel(resource), org.Plan),
			}
		}
		l.observe(resource, true, "")
		return CheckResult{Allowed: true, Limit: Unlimited, Current: current, Remaining: -1}

	case limit == 0:
		l.observe(resource, false, "unavailable")
		return CheckResult{
			Allowed: false,
			Limit:   0,
			Current: current,
			Message: fmt.Sprintf(msgUnavailable, resourceLabel(resource), org.Plan),
		}

	default:
		remaining := limit - current
		if remaining < 0 {
			remaining = 0
		}
		if limit-current < amount {
			overage := current + amount - limit
			cost := billing.CalculateOverageCost(org.Plan, string(resource), overage)
			message := fmt.Sprintf(msgLimitExceeded, resourceLabel(resource), current, limit)
			if cost > 0 {
				message = fmt.Sprintf(msgLimitOverage, resourceLabel(resource), current, limit, cost)
			}
			l.observe(resource, false, "limit_exceeded")
			if l.metrics != nil {
				l.metrics.OverageUnitsTotal.WithLabelValues(string(resource)).Add(float64(overage))
			}
			return CheckResult{
				Allowed:     false,
				Limit:       limit,
				Current:     current,
				Remaining:   remaining,
				Message:     message,
				OverageCost: cost,
			}
		}
		l.observe(resource, true, "")
		return CheckResult{Allowed: true, Limit: limit, Current: current, Remaining: remaining}
	}
}

// Increment records consumption of a resource and evaluates alert
// thresholds. Failures are logged and swallowed: the user-facing
// action already happened, and occasional under-counting is preferred
// over blocking it after the fact.
func (l *Limiter) Increment(ctx context.Context, orgID string, resource ResourceType, amount int64, metadata map[string]string) {
	if amount <= 0 {
		amount = 1
	}

	org, err := l.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		l.logger.WithError(err).WithField("org_id", orgID).Warn("usage increment skipped: organization lookup failed")
		return
	}

	if err := l.store.Increment(ctx, orgID, resource, amount, baseCost(org.Plan)); err != nil {
		l.logger.WithError(err).
			WithField("org_id", orgID).
			WithField("resource", string(resource)).
			Error("failed to increment usage")
		return
	}

	if l.metrics != nil {
		l.metrics.UsageIncrementsTotal.WithLabelValues(string(resource)).Add(float64(amount))
	}
	if len(metadata) > 0 {
		l.logger.WithFields(map[string]any{
			"org_id":   orgID,
			"resource": string(resource),
			"amount":   amount,
			"metadata": metadata,
		}).Debug("usage incremented")
	}

	l.evaluateAlerts(ctx, org, resource)
}

// evaluateAlerts writes at most one alert for the highest band the
// resource's usage has reached this period. Best effort.
func (l *Limiter) evaluateAlerts(ctx context.Context, org *orgs.Organization, resource ResourceType) {
	limit, ok := LimitFor(org.Plan, resource)
	if !ok || limit <= 0 {
		// Unlimited and unavailable resources never alert.
		return
	}

	rec, err := l.store.GetRecord(ctx, org.ID)
	if err != nil || rec == nil {
		if err != nil {
			l.logger.WithError(err).WithField("org_id", org.ID).Warn("alert evaluation skipped: record lookup failed")
		}
		return
	}

	current := rec.Counter(resource)
	threshold := thresholdFor(current * 100 / limit)
	if threshold == 0 {
		return
	}

	alert := &Alert{
		OrganizationID: org.ID,
		Resource:       resource,
		PeriodStart:    rec.PeriodStart,
		Threshold:      threshold,
		Severity:       severityFor(threshold),
		Message:        alertMessage(resource, threshold, current, limit),
	}

	created, err := l.store.InsertAlert(ctx, alert)
	if err != nil {
		l.logger.WithError(err).
			WithField("org_id", org.ID).
			WithField("resource", string(resource)).
			Error("failed to write usage alert")
		return
	}
	if created {
		l.logger.WithFields(map[string]any{
			"org_id":    org.ID,
			"resource":  string(resource),
			"threshold": threshold,
			"severity":  string(alert.Severity),
		}).Info("usage alert created")
		if l.metrics != nil {
			l.metrics.UsageAlertsTotal.WithLabelValues(string(resource), string(alert.Severity)).Inc()
		}
	}
}

// TrackCost records an internal cost event and evaluates the
// cost-to-estimate ratio. Same fail-and-swallow posture as Increment.
func (l *Limiter) TrackCost(ctx context.Context, orgID, costType string, quantity, unitCost float64, metadata map[string]string) {
	org, err := l.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		l.logger.WithError(err).WithField("org_id", orgID).Warn("cost tracking skipped: organization lookup failed")
		return
	}

	event := &CostEvent{
		OrganizationID: orgID,
		CostType:       costType,
		Quantity:       quantity,
		UnitCost:       unitCost,
		TotalCost:      quantity * unitCost,
		Metadata:       metadata,
	}

	if err := l.store.RecordCost(ctx, event, baseCost(org.Plan)); err != nil {
		l.logger.WithError(err).
			WithField("org_id", orgID).
			WithField("cost_type", costType).
			Error("failed to record cost event")
		return
	}

	intent, ratio, err := l.CostStatus(ctx, orgID)
	if err != nil {
		l.logger.WithError(err).WithField("org_id", orgID).Warn("cost threshold evaluation failed")
		return
	}
	l.logCostIntent(orgID, intent, ratio)
}

// CostStatus returns the organization's current cost escalation
// intent and actual-to-estimated ratio for this period. The ratio is
// 0 when no estimate exists.
func (l *Limiter) CostStatus(ctx context.Context, orgID string) (CostIntent, float64, error) {
	rec, err := l.store.GetRecord(ctx, orgID)
	if err != nil {
		return CostIntentNone, 0, err
	}
	if rec == nil || rec.EstimatedMonthlyCost <= 0 {
		return CostIntentNone, 0, nil
	}
	ratio := rec.ActualCostToDate / rec.EstimatedMonthlyCost
	return costIntentFor(ratio), ratio, nil
}

// logCostIntent records the escalation decision. These are intents,
// not actions: nothing is suspended or throttled here.
// TODO: route suspend/throttle intents through an account-state
// service once one exists; today ops act on the logs and metrics.
func (l *Limiter) logCostIntent(orgID string, intent CostIntent, ratio float64) {
	if intent == CostIntentNone {
		return
	}

	entry := l.logger.WithFields(map[string]any{
		"org_id": orgID,
		"ratio":  ratio,
		"intent": string(intent),
	})
	switch intent {
	case CostIntentSuspend:
		entry.Error("organization cost far exceeds estimate, account should be suspended")
	case CostIntentThrottle:
		entry.Warn("organization cost exceeds estimate, features should be throttled")
	case CostIntentNotify:
		entry.Warn("organization cost is running ahead of estimate, customer should be notified")
	}
	if l.metrics != nil {
		l.metrics.CostThresholdsTotal.WithLabelValues(string(intent)).Inc()
	}
}

// Summary projects the current period's record into a UI-friendly
// shape. Returns nil when the organization has no record yet or the
// read fails.
func (l *Limiter) Summary(ctx context.Context, orgID string) *Summary {
	rec, err := l.store.GetRecord(ctx, orgID)
	if err != nil {
		l.logger.WithError(err).WithField("org_id", orgID).Warn("usage summary lookup failed")
		return nil
	}
	if rec == nil {
		return nil
	}

	counters := make(map[string]int64, len(resourceColumns))
	for _, resource := range AllResources() {
		counters[string(resource)] = rec.Counter(resource)
	}

	return &Summary{
		OrganizationID:       rec.OrganizationID,
		PeriodStart:          rec.PeriodStart,
		PeriodEnd:            rec.PeriodEnd,
		Counters:             counters,
		StorageGB:            float64(rec.StorageBytes) / float64(gb),
		EstimatedMonthlyCost: rec.EstimatedMonthlyCost,
		ActualCostToDate:     rec.ActualCostToDate,
	}
}

// Alerts returns the current period's alerts for an organization.
func (l *Limiter) Alerts(ctx context.Context, orgID string) ([]*Alert, error) {
	return l.store.ListAlerts(ctx, orgID)
}
