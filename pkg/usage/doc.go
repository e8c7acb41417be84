// Package usage meters per-organization resource consumption against
// subscription plan limits.
//
// # Overview
//
// Every metered action flows through the same three calls:
//
//	result := limiter.CheckLimit(ctx, orgID, usage.ResourceClients, 1)
//	if !result.Allowed {
//		// result.Message explains why; result.OverageCost > 0 means
//		// the denied amount can be bought as an add-on
//	}
//	// ... perform the action ...
//	limiter.Increment(ctx, orgID, usage.ResourceClients, 1, nil)
//
// CheckLimit evaluates a fixed gate order: organization exists,
// subscription active or trial, plan recognized, then the resource's
// limit. A limit of 0 means the feature is not sold on the plan; the
// Unlimited sentinel means no cap, subject to an optional fair-use
// ceiling (defined today only for premium clients, AI summaries and
// team members).
//
// CheckLimit never returns an error. Unexpected failures deny with a
// generic message; being wrongly permissive is the only unacceptable
// outcome.
//
// # Counters and Periods
//
// Usage accumulates in one row per (organization, calendar month),
// created lazily by the first increment of the period. Counters only
// grow; a new month starts from a fresh row, so quota never carries
// over. Increments are single atomic UPDATEs, safe across concurrent
// callers.
//
// Increment deliberately swallows failures: the user-facing action
// already happened by the time metering runs, and occasionally
// under-counting beats blocking legitimate use.
//
// # Alerts
//
// After each increment the resource's usage percentage is checked
// against the 80, 90 and 100 bands. Crossing a band writes one alert
// row, keyed (organization, resource, period, threshold) with an
// idempotent insert, so bursts of increments cannot duplicate an
// alert. 100 is critical, the others warning.
//
// # Cost Tracking
//
// TrackCost records internal cost-of-goods events (AI calls,
// transcription, messaging) separately from the plan counters, and
// compares the period's actual cost against its estimate. Ratios of
// 1.5, 2.0 and 3.0 escalate to notify, throttle and suspend intents.
// The intents are logged and counted, not enforced.
package usage
