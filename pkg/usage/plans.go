package usage

import "github.com/coachdesk/coachdesk/pkg/orgs"

const gb = int64(1024 * 1024 * 1024)

// planLimits are the per-plan resource caps. A limit of 0 means the
// feature is unavailable on that plan, which is distinct from
// Unlimited. Every plan lists every resource so a missing entry is
// always a configuration bug, not a default.
var planLimits = map[orgs.Plan]map[ResourceType]int64{
	orgs.PlanStandard: {
		ResourceClients:              50,
		ResourceEmails:               500,
		ResourceSMSMessages:          0,
		ResourceWhatsAppMessages:     0,
		ResourceVideoMinutes:         0,
		ResourceAISummaries:          10,
		ResourceAIInsights:           0,
		ResourceTranscriptionMinutes: 0,
		ResourceTeamMembers:          3,
		ResourceStorageBytes:         5 * gb,
	},
	orgs.PlanPro: {
		ResourceClients:              200,
		ResourceEmails:               2500,
		ResourceSMSMessages:          250,
		ResourceWhatsAppMessages:     500,
		ResourceVideoMinutes:         600,
		ResourceAISummaries:          100,
		ResourceAIInsights:           50,
		ResourceTranscriptionMinutes: 300,
		ResourceTeamMembers:          10,
		ResourceStorageBytes:         25 * gb,
	},
	orgs.PlanPremium: {
		ResourceClients:              Unlimited,
		ResourceEmails:               Unlimited,
		ResourceSMSMessages:          Unlimited,
		ResourceWhatsAppMessages:     Unlimited,
		ResourceVideoMinutes:         Unlimited,
		ResourceAISummaries:          Unlimited,
		ResourceAIInsights:           Unlimited,
		ResourceTranscriptionMinutes: Unlimited,
		ResourceTeamMembers:          Unlimited,
		ResourceStorageBytes:         Unlimited,
	},
}

// fairUseCeilings soft-cap nominally unlimited resources. Only
// premium advertises unlimited today, and only these three resources
// have a ceiling; an unlimited resource with no ceiling here is a
// deliberate configuration state and is logged as such when checked.
var fairUseCeilings = map[orgs.Plan]map[ResourceType]int64{
	orgs.PlanPremium: {
		ResourceClients:     1000,
		ResourceAISummaries: 500,
		ResourceTeamMembers: 50,
	},
}

// LimitFor returns the limit for a resource under a plan. The second
// return is false for an unknown plan or a resource missing from the
// plan's table.
func LimitFor(plan orgs.Plan, resource ResourceType) (int64, bool) {
	limits, ok := planLimits[plan]
	if !ok {
		return 0, false
	}
	limit, ok := limits[resource]
	return limit, ok
}

// FairUseCeiling returns the fair-use ceiling for a resource under a
// plan, if one is defined.
func FairUseCeiling(plan orgs.Plan, resource ResourceType) (int64, bool) {
	ceilings, ok := fairUseCeilings[plan]
	if !ok {
		return 0, false
	}
	ceiling, ok := ceilings[resource]
	return ceiling, ok
}

// PlanKnown reports whether the plan has a limit table.
func PlanKnown(plan orgs.Plan) bool {
	_, ok := planLimits[plan]
	return ok
}

// Overrides carries ops-tuned replacements for individual plan limits
// and fair-use ceilings, typically loaded from a config file.
type Overrides struct {
	Limits  map[orgs.Plan]map[ResourceType]int64 `yaml:"limits"`
	FairUse map[orgs.Plan]map[ResourceType]int64 `yaml:"fair_use"`
}

// ApplyOverrides patches the static tables in place. Call once during
// startup, before any limiter is serving; the tables are read without
// locking afterwards.
func ApplyOverrides(o Overrides) {
	for plan, limits := range o.Limits {
		if planLimits[plan] == nil {
			planLimits[plan] = make(map[ResourceType]int64)
		}
		for resource, limit := range limits {
			planLimits[plan][resource] = limit
		}
	}
	for plan, ceilings := range o.FairUse {
		if fairUseCeilings[plan] == nil {
			fairUseCeilings[plan] = make(map[ResourceType]int64)
		}
		for resource, ceiling := range ceilings {
			fairUseCeilings[plan][resource] = ceiling
		}
	}
}
