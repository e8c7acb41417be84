package usage

import "fmt"

// Alert thresholds as percentages of a finite limit.
const (
	ThresholdWarning80 = 80
	ThresholdWarning90 = 90
	ThresholdExceeded  = 100
)

// Cost-to-estimate ratios that trigger escalating intents. These are
// logged intents, not enforced actions.
const (
	CostRatioNotify   = 1.5
	CostRatioThrottle = 2.0
	CostRatioSuspend  = 3.0
)

// thresholdFor maps a usage percentage to the highest alert band it
// reaches. Returns 0 when no band is reached.
func thresholdFor(percent int64) int {
	switch {
	case percent >= ThresholdExceeded:
		return ThresholdExceeded
	case percent >= ThresholdWarning90:
		return ThresholdWarning90
	case percent >= ThresholdWarning80:
		return ThresholdWarning80
	}
	return 0
}

// severityFor maps an alert band to its severity.
func severityFor(threshold int) AlertSeverity {
	if threshold >= ThresholdExceeded {
		return SeverityCritical
	}
	return SeverityWarning
}

// alertMessage renders the user-facing alert text for a band.
func alertMessage(resource ResourceType, threshold int, current, limit int64) string {
	label := resourceLabel(resource)
	if threshold >= ThresholdExceeded {
		return fmt.Sprintf("You have used all of your %s allowance for this billing period (%d of %d). Further use may incur overage charges.", label, current, limit)
	}
	return fmt.Sprintf("You have used %d%% of your %s allowance for this billing period (%d of %d).", threshold, label, current, limit)
}

// resourceLabel returns a human-readable name for a resource.
func resourceLabel(resource ResourceType) string {
	switch resource {
	case ResourceClients:
		return "client"
	case ResourceEmails:
		return "email"
	case ResourceSMSMessages:
		return "SMS"
	case ResourceWhatsAppMessages:
		return "WhatsApp message"
	case ResourceVideoMinutes:
		return "video minute"
	case ResourceAISummaries:
		return "AI summary"
	case ResourceAIInsights:
		return "AI insight"
	case ResourceTranscriptionMinutes:
		return "transcription minute"
	case ResourceTeamMembers:
		return "team member"
	case ResourceStorageBytes:
		return "storage"
	}
	return string(resource)
}

// CostIntent names the escalation a cost ratio calls for.
type CostIntent string

const (
	CostIntentNone     CostIntent = ""
	CostIntentNotify   CostIntent = "notify"
	CostIntentThrottle CostIntent = "throttle"
	CostIntentSuspend  CostIntent = "suspend"
)

// costIntentFor maps actual-to-estimated cost ratio to an intent.
func costIntentFor(ratio float64) CostIntent {
	switch {
	case ratio >= CostRatioSuspend:
		return CostIntentSuspend
	case ratio >= CostRatioThrottle:
		return CostIntentThrottle
	case ratio >= CostRatioNotify:
		return CostIntentNotify
	}
	return CostIntentNone
}
