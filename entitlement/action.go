package entitlement

import "github.com/roomvista/billing/plan"

// Action is a product operation gated by the billing state. Gating happens at
// this granularity, not at the raw feature/resource level, so product code
// never has to know which plan knob backs which button.
type Action string

const (
	ActionGenerateDesign Action = "generate_design"
	ActionDetectRoom     Action = "detect_room"
	ActionShoppingList   Action = "shopping_list"
	ActionExportHD       Action = "export_hd"
	ActionStyleTransfer  Action = "style_transfer"
	ActionViewHistory    Action = "view_history"
)

// requirement binds an action to the plan feature that must be present and
// the metered resource it consumes. A zero feature means any plan may run it;
// a zero resource means it is unmetered.
type requirement struct {
	feature  plan.Feature
	resource plan.Resource
}

var actionTable = map[Action]requirement{
	ActionGenerateDesign: {feature: plan.FeatureRedesign, resource: plan.ResourceGenerations},
	ActionStyleTransfer:  {feature: plan.FeatureStyleTransfer, resource: plan.ResourceGenerations},
	ActionDetectRoom:     {resource: plan.ResourceRoomScans},
	ActionShoppingList:   {feature: plan.FeatureShoppingList, resource: plan.ResourceShoppingLists},
	ActionExportHD:       {feature: plan.FeatureHDExport},
	ActionViewHistory:    {},
}

// Resource returns the metered resource the action consumes, or false for
// unmetered actions.
func (a Action) Resource() (plan.Resource, bool) {
	req, ok := actionTable[a]
	if !ok || req.resource == "" {
		return "", false
	}
	return req.resource, true
}
