package usage

import "time"

// Unlimited is the sentinel limit for resources with no plan cap.
const Unlimited int64 = -1

// ResourceType identifies a metered resource.
type ResourceType string

const (
	ResourceClients              ResourceType = "clients"
	ResourceEmails               ResourceType = "emails"
	ResourceSMSMessages          ResourceType = "sms_messages"
	ResourceWhatsAppMessages     ResourceType = "whatsapp_messages"
	ResourceVideoMinutes         ResourceType = "video_minutes"
	ResourceAISummaries          ResourceType = "ai_summaries"
	ResourceAIInsights           ResourceType = "ai_insights"
	ResourceTranscriptionMinutes ResourceType = "transcription_minutes"
	ResourceTeamMembers          ResourceType = "team_members"
	ResourceStorageBytes         ResourceType = "storage_bytes"
)

// AllResources returns every metered resource type.
func AllResources() []ResourceType {
	return []ResourceType{
		ResourceClients,
		ResourceEmails,
		ResourceSMSMessages,
		ResourceWhatsAppMessages,
		ResourceVideoMinutes,
		ResourceAISummaries,
		ResourceAIInsights,
		ResourceTranscriptionMinutes,
		ResourceTeamMembers,
		ResourceStorageBytes,
	}
}

// Valid reports whether r is a known resource type.
func (r ResourceType) Valid() bool {
	for _, known := range AllResources() {
		if r == known {
			return true
		}
	}
	return false
}

// CheckResult is the outcome of a limit check. Limit is Unlimited for
// uncapped resources; Remaining is -1 when not meaningfully boundable.
// OverageCost is the INR price of buying the denied amount as an
// add-on; 0 means the only path is a plan upgrade.
type CheckResult struct {
	Allowed     bool   `json:"allowed"`
	Limit       int64  `json:"limit"`
	Current     int64  `json:"current"`
	Remaining   int64  `json:"remaining"`
	Message     string `json:"message,omitempty"`
	OverageCost int64  `json:"overage_cost,omitempty"`
}

// Record holds one billing period's counters for an organization.
// Rows are created lazily on first use within a period and never
// deleted; a new period gets a fresh row with zeroed counters.
type Record struct {
	ID                   string    `json:"id"`
	OrganizationID       string    `json:"organization_id"`
	PeriodStart          time.Time `json:"period_start"`
	PeriodEnd            time.Time `json:"period_end"`
	ClientsCount         int64     `json:"clients_count"`
	EmailsSent           int64     `json:"emails_sent"`
	SMSSent              int64     `json:"sms_sent"`
	WhatsAppSent         int64     `json:"whatsapp_sent"`
	VideoMinutes         int64     `json:"video_minutes"`
	AISummariesCount     int64     `json:"ai_summaries_count"`
	AIInsightsCount      int64     `json:"ai_insights_count"`
	TranscriptionMinutes int64     `json:"transcription_minutes"`
	TeamMembersCount     int64     `json:"team_members_count"`
	StorageBytes         int64     `json:"storage_bytes"`
	EstimatedMonthlyCost float64   `json:"estimated_monthly_cost"`
	ActualCostToDate     float64   `json:"actual_cost_to_date"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Counter returns the record's counter value for a resource.
func (r *Record) Counter(resource ResourceType) int64 {
	if r == nil {
		return 0
	}
	switch resource {
	case ResourceClients:
		return r.ClientsCount
	case ResourceEmails:
		return r.EmailsSent
	case ResourceSMSMessages:
		return r.SMSSent
	case ResourceWhatsAppMessages:
		return r.WhatsAppSent
	case ResourceVideoMinutes:
		return r.VideoMinutes
	case ResourceAISummaries:
		return r.AISummariesCount
	case ResourceAIInsights:
		return r.AIInsightsCount
	case ResourceTranscriptionMinutes:
		return r.TranscriptionMinutes
	case ResourceTeamMembers:
		return r.TeamMembersCount
	case ResourceStorageBytes:
		return r.StorageBytes
	}
	return 0
}

// AlertSeverity classifies a usage alert.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert records a threshold crossing for one resource within one
// billing period. At most one alert exists per (organization,
// resource, period, threshold).
type Alert struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id"`
	Resource       ResourceType  `json:"resource"`
	PeriodStart    time.Time     `json:"period_start"`
	Threshold      int           `json:"threshold"`
	Severity       AlertSeverity `json:"severity"`
	Message        string        `json:"message"`
	CreatedAt      time.Time     `json:"created_at"`
}

// CostEvent records an internal cost-of-goods expense, distinct from
// the user-facing plan counters.
type CostEvent struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	CostType       string            `json:"cost_type"`
	Quantity       float64           `json:"quantity"`
	UnitCost       float64           `json:"unit_cost"`
	TotalCost      float64           `json:"total_cost"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Summary is a UI-friendly projection of the current period's record.
type Summary struct {
	OrganizationID       string           `json:"organization_id"`
	PeriodStart          time.Time        `json:"period_start"`
	PeriodEnd            time.Time        `json:"period_end"`
	Counters             map[string]int64 `json:"counters"`
	StorageGB            float64          `json:"storage_gb"`
	EstimatedMonthlyCost float64          `json:"estimated_monthly_cost"`
	ActualCostToDate     float64          `json:"actual_cost_to_date"`
}
