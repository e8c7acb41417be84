// Package billing holds the static pricing configuration: base plan
// prices and per-resource overage prices, all INR-denominated. It is
// configuration, not a payment integration; invoicing and the payment
// gateway live outside this service.
package billing

import "github.com/coachdesk/coachdesk/pkg/orgs"

// PlanPricing defines the base monthly price for a plan in INR.
type PlanPricing struct {
	Plan          orgs.Plan
	BasePriceINR  int64
	AllowsOverage bool
}

// DefaultPlanPricing returns the base pricing for each plan.
func DefaultPlanPricing() map[orgs.Plan]PlanPricing {
	return map[orgs.Plan]PlanPricing{
		orgs.PlanStandard: {
			Plan:          orgs.PlanStandard,
			BasePriceINR:  999,
			AllowsOverage: true,
		},
		orgs.PlanPro: {
			Plan:          orgs.PlanPro,
			BasePriceINR:  2499,
			AllowsOverage: true,
		},
		orgs.PlanPremium: {
			Plan:          orgs.PlanPremium,
			BasePriceINR:  4999,
			AllowsOverage: false, // nothing to buy past unlimited
		},
	}
}

// OveragePrice prices consumption past a plan limit in whole blocks.
// A partial block is charged as a full block.
type OveragePrice struct {
	BlockSize     int64 // units per block
	BlockPriceINR int64 // price per block
}

// overagePrices lists the purchasable add-on prices per resource.
// Resources absent from this table cannot be bought past their limit;
// the only path is a plan upgrade.
var overagePrices = map[string]OveragePrice{
	"clients":               {BlockSize: 5, BlockPriceINR: 99},
	"emails":                {BlockSize: 100, BlockPriceINR: 49},
	"sms_messages":          {BlockSize: 50, BlockPriceINR: 99},
	"whatsapp_messages":     {BlockSize: 50, BlockPriceINR: 149},
	"video_minutes":         {BlockSize: 60, BlockPriceINR: 199},
	"ai_summaries":          {BlockSize: 10, BlockPriceINR: 99},
	"ai_insights":           {BlockSize: 10, BlockPriceINR: 149},
	"transcription_minutes": {BlockSize: 30, BlockPriceINR: 99},
	"team_members":          {BlockSize: 1, BlockPriceINR: 299},
}

// CalculateOverageCost returns the INR cost of consuming units beyond
// the plan limit for a resource. Returns 0 when the resource has no
// add-on price (must-upgrade) or when the plan does not sell overages.
func CalculateOverageCost(plan orgs.Plan, resource string, units int64) int64 {
	if units <= 0 {
		return 0
	}

	pricing, ok := DefaultPlanPricing()[plan]
	if !ok || !pricing.AllowsOverage {
		return 0
	}

	price, ok := overagePrices[resource]
	if !ok {
		return 0
	}

	blocks := (units + price.BlockSize - 1) / price.BlockSize
	return blocks * price.BlockPriceINR
}

// OveragePriceFor returns the add-on price entry for a resource, if
// one exists.
func OveragePriceFor(resource string) (OveragePrice, bool) {
	price, ok := overagePrices[resource]
	return price, ok
}
