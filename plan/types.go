package plan

import "slices"

// Resource represents a metered, countable resource type.
type Resource string

const (
	ResourceGenerations   Resource = "generations"
	ResourceRoomScans     Resource = "room_scans"
	ResourceShoppingLists Resource = "shopping_lists"
)

const (
	// Unlimited indicates no limit for a resource (-1 chosen for SQL compatibility).
	Unlimited int64 = -1
)

// Feature represents a plan-specific capability that can be enabled/disabled.
type Feature string

const (
	FeatureRedesign      Feature = "redesign"
	FeatureStyleTransfer Feature = "style_transfer"
	FeatureShoppingList  Feature = "shopping_list"
	FeatureHDExport      Feature = "hd_export"
	FeaturePriorityQueue Feature = "priority_queue"
)

// Money represents a monetary amount in the smallest currency unit.
// For example, $19.00 USD is Amount: 1900, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// Plan describes a subscription tier and its feature/limit constraints.
// Plans are immutable after registry construction.
type Plan struct {
	ID        string             `yaml:"id"`
	Name      string             `yaml:"name"`
	Tier      int                `yaml:"tier"`
	Price     Money              `yaml:"price"`
	TrialDays int                `yaml:"trial_days"`
	Features  []Feature          `yaml:"features"`
	Limits    map[Resource]int64 `yaml:"limits"`

	// Provider-side identifiers for the same plan. Checkout uses whichever
	// matches the gateway the user was routed to.
	PaddlePriceID  string `yaml:"paddle_price_id"`
	PaymobPlanCode string `yaml:"paymob_plan_code"`
}

// HasFeature reports whether the plan enables the given feature.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// Limit returns the limit for a resource. The second return value is false
// when the plan does not define the resource at all.
func (p Plan) Limit(res Resource) (int64, bool) {
	limit, ok := p.Limits[res]
	return limit, ok
}

// IsFree reports whether this is the zero-price plan.
func (p Plan) IsFree() bool {
	return p.Price.Amount == 0
}
