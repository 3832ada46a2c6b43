package plans

import "time"

// Catalog is the immutable plan table, loaded once at startup and injected
// into everything that needs limits. Runtime code never mutates it.
type Catalog struct {
	byID  map[string]Plan
	order []string
}

func NewCatalog(list []Plan) *Catalog {
	c := &Catalog{byID: make(map[string]Plan, len(list))}
	for _, p := range list {
		c.byID[p.PlanID] = p
		c.order = append(c.order, p.PlanID)
	}
	return c
}

// Get returns the plan for an id. ok is false for unknown ids; callers must
// treat a missing plan as "no entitlement", not fall back to a default.
func (c *Catalog) Get(planID string) (Plan, bool) {
	p, ok := c.byID[planID]
	return p, ok
}

// List returns plans in seed order.
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// PeriodEnd computes the expiry for a billing period starting at from.
func PeriodEnd(period string, from time.Time) time.Time {
	if period == PeriodAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// DefaultPlans is the shipped catalog, seeded into the plans table on boot.
func DefaultPlans() []Plan {
	return []Plan{
		{
			PlanID:        "basic",
			DisplayName:   "Basic",
			PriceCents:    990,
			BillingPeriod: PeriodMonthly,
			Limits:        Limits{MaxUsers: 3, MaxRecords: 500, MaxOrganizations: 1},
		},
		{
			PlanID:        "pro",
			DisplayName:   "Pro",
			PriceCents:    2990,
			BillingPeriod: PeriodMonthly,
			Limits:        Limits{MaxUsers: 10, MaxRecords: 5000, MaxOrganizations: 3},
		},
		{
			PlanID:        "pro-annual",
			DisplayName:   "Pro (annual)",
			PriceCents:    29900,
			BillingPeriod: PeriodAnnual,
			Limits:        Limits{MaxUsers: 10, MaxRecords: 5000, MaxOrganizations: 3},
		},
		{
			PlanID:        "enterprise",
			DisplayName:   "Enterprise",
			PriceCents:    9990,
			BillingPeriod: PeriodMonthly,
			Limits:        Limits{MaxUsers: 50, MaxRecords: 50000, MaxOrganizations: 10},
		},
	}
}
