package subscription

import "time"

// Outcome is the canonical result of a payment, produced by the status
// mapper from the processor's own vocabulary.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomePending  Outcome = "pending"
	OutcomeRejected Outcome = "rejected"
	// OutcomeUnknown is non-terminal: no transition, the event stays
	// unprocessed so it can be replayed once the mapping table grows.
	OutcomeUnknown Outcome = "unknown"
)

// PaymentEvent is a normalized payment notification. EventID is the
// processor's own identifier and doubles as the idempotency key.
type PaymentEvent struct {
	EventID           string
	AccountID         string
	PlanID            string
	Outcome           Outcome
	AmountCents       int64
	OccurredAt        time.Time
	RawProviderStatus string // audit only, never drives logic
}
