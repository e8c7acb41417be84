package orgs

import "time"

// Plan represents subscription plan tiers
type Plan string

const (
	PlanStandard Plan = "standard"
	PlanPro      Plan = "pro"
	PlanPremium  Plan = "premium"
)

// Valid reports whether p is a known plan tier.
func (p Plan) Valid() bool {
	switch p {
	case PlanStandard, PlanPro, PlanPremium:
		return true
	}
	return false
}

// SubscriptionStatus represents the billing state of an organization's
// subscription. Only active and trial subscriptions may consume
// metered resources.
type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionTrial      SubscriptionStatus = "trial"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
)

// Usable reports whether the subscription permits resource
// consumption.
func (s SubscriptionStatus) Usable() bool {
	return s == SubscriptionActive || s == SubscriptionTrial
}

// Organization represents a tenant
type Organization struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Slug               string             `json:"slug"`
	Plan               Plan               `json:"plan"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
