package entitlement

import (
	"time"

	"subscription-app/internal/domain/plans"
	"subscription-app/internal/domain/subscription"
)

// Evaluation is the allow/deny decision plus remaining capacity per
// resource kind.
type Evaluation struct {
	Allowed   map[ResourceKind]bool `json:"allowed"`
	Remaining map[ResourceKind]int  `json:"remaining"`
}

// Evaluate computes entitlement from a subscription record, its usage
// counters, and the plan. Pure: no I/O, no store access. A non-active
// subscription denies every kind regardless of remaining numeric capacity —
// status gating takes precedence.
func Evaluate(rec *subscription.Record, usage UsageCounters, plan plans.Plan, now time.Time) Evaluation {
	active := rec.IsActive(now)

	ev := Evaluation{
		Allowed:   make(map[ResourceKind]bool, 3),
		Remaining: make(map[ResourceKind]int, 3),
	}
	for _, kind := range Kinds() {
		remaining := LimitFor(plan, kind) - usage.Count(kind)
		if remaining < 0 {
			remaining = 0
		}
		ev.Remaining[kind] = remaining
		ev.Allowed[kind] = active && remaining > 0
	}
	return ev
}
