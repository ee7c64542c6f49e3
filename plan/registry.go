package plan

import (
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/text/currency"
)

// Registry is the read-only lookup over the seeded plan catalog. It is built
// once at process start and shared by reference; all methods are safe for
// concurrent use because the underlying data never changes.
type Registry struct {
	plans  map[string]Plan
	byTier []Plan // ascending tier order
	log    *slog.Logger
}

// NewRegistry validates the catalog and builds the registry. Validation
// failures are configuration bugs and must prevent startup:
//
//   - tiers are unique and totally ordered by price,
//   - a higher tier's feature set is a superset of every lower tier's,
//   - limits are non-negative or Unlimited,
//   - currency codes are valid ISO 4217.
func NewRegistry(plans []Plan, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w: no plans seeded", ErrInvalidCatalog)
	}

	byTier := slices.Clone(plans)
	slices.SortFunc(byTier, func(a, b Plan) int { return a.Tier - b.Tier })

	byID := make(map[string]Plan, len(byTier))
	for i, p := range byTier {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: plan at tier %d has empty id", ErrInvalidCatalog, p.Tier)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate plan id %q", ErrInvalidCatalog, p.ID)
		}
		if _, err := currency.ParseISO(p.Price.Currency); err != nil {
			return nil, fmt.Errorf("%w: plan %q: %q", ErrInvalidCurrency, p.ID, p.Price.Currency)
		}
		for res, limit := range p.Limits {
			if limit < Unlimited {
				return nil, fmt.Errorf("%w: plan %q has invalid limit %d for %q", ErrInvalidCatalog, p.ID, limit, res)
			}
		}

		if i == 0 {
			byID[p.ID] = p
			continue
		}

		prev := byTier[i-1]
		if p.Tier == prev.Tier {
			return nil, fmt.Errorf("%w: plans %q and %q share tier %d", ErrInvalidCatalog, prev.ID, p.ID, p.Tier)
		}
		if p.Price.Amount <= prev.Price.Amount {
			return nil, fmt.Errorf("%w: tier ordering broken: %q (%d) not priced above %q (%d)",
				ErrInvalidCatalog, p.ID, p.Price.Amount, prev.ID, prev.Price.Amount)
		}
		for _, f := range prev.Features {
			if !p.HasFeature(f) {
				return nil, fmt.Errorf("%w: plan %q drops feature %q present in lower tier %q",
					ErrInvalidCatalog, p.ID, f, prev.ID)
			}
		}

		byID[p.ID] = p
	}

	return &Registry{plans: byID, byTier: byTier, log: log}, nil
}

// NewDefaultRegistry builds a registry from the embedded catalog.
func NewDefaultRegistry(log *slog.Logger) (*Registry, error) {
	plans, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	return NewRegistry(plans, log)
}

// Get returns the plan for the given id. An unseeded id is a configuration
// bug: it is logged at error level and returned as ErrPlanNotFound, never
// silently defaulted.
func (r *Registry) Get(planID string) (Plan, error) {
	p, ok := r.plans[planID]
	if !ok {
		r.log.Error("unseeded plan id requested", slog.String("plan_id", planID))
		return Plan{}, fmt.Errorf("%w: %q", ErrPlanNotFound, planID)
	}
	return p, nil
}

// Feature reports whether the given plan enables the feature.
func (r *Registry) Feature(planID string, f Feature) (bool, error) {
	p, err := r.Get(planID)
	if err != nil {
		return false, err
	}
	return p.HasFeature(f), nil
}

// Limit returns the plan's limit for a resource. A resource the plan does not
// define is reported as a zero limit: nothing is implicitly unlimited.
func (r *Registry) Limit(planID string, res Resource) (int64, error) {
	p, err := r.Get(planID)
	if err != nil {
		return 0, err
	}
	limit, ok := p.Limit(res)
	if !ok {
		return 0, nil
	}
	return limit, nil
}

// LowestTier returns the zero-price fallback plan used for cancelled and
// expired subscriptions.
func (r *Registry) LowestTier() Plan {
	return r.byTier[0]
}

// HighestTier returns the top plan of the catalog.
func (r *Registry) HighestTier() Plan {
	return r.byTier[len(r.byTier)-1]
}

// Plans returns all seeded plans in ascending tier order.
func (r *Registry) Plans() []Plan {
	return slices.Clone(r.byTier)
}
