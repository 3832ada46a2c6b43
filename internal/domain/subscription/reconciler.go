package subscription

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"subscription-app/internal/domain/plans"
)

// Result classifies what applying an event did to the record.
type Result string

const (
	ResultApplied   Result = "applied"
	ResultDuplicate Result = "duplicate" // same event id, already processed
	ResultStale     Result = "stale"     // older than last processed, no-op success
	ResultSkipped   Result = "skipped"   // nothing to transition (unknown outcome, no record)
)

// Store is the slice of the entitlement store the reconciler writes through.
// The callback runs under the store's per-account lock; returning a non-nil
// record commits it as one unit, returning nil commits nothing.
type Store interface {
	ApplyTransition(ctx context.Context, accountID string, fn func(current *Record) (*Record, error)) error
}

// Reconciler applies normalized payment events to subscription records,
// resolving duplicate and out-of-order delivery.
type Reconciler struct {
	store   Store
	catalog *plans.Catalog
}

func NewReconciler(store Store, catalog *plans.Catalog) *Reconciler {
	return &Reconciler{store: store, catalog: catalog}
}

// Apply runs the state machine for one event. Duplicate and stale events are
// successful no-ops; unknown outcomes are skipped without being marked
// processed; approved events missing account or plan metadata fail with
// ErrMetadataIncomplete and leave the record untouched.
func (r *Reconciler) Apply(ctx context.Context, ev PaymentEvent) (Result, error) {
	if ev.Outcome == OutcomeUnknown {
		log.Warn().
			Str("event_id", ev.EventID).
			Str("provider_status", ev.RawProviderStatus).
			Msg("unmapped provider status, event left unprocessed")
		return ResultSkipped, nil
	}

	if ev.Outcome == OutcomeApproved {
		if ev.AccountID == "" || ev.PlanID == "" {
			return "", fmt.Errorf("event %s missing account/plan metadata: %w", ev.EventID, ErrMetadataIncomplete)
		}
		if _, ok := r.catalog.Get(ev.PlanID); !ok {
			return "", fmt.Errorf("event %s references unknown plan %q: %w", ev.EventID, ev.PlanID, ErrMetadataIncomplete)
		}
	}

	if ev.AccountID == "" {
		// Non-approved event that cannot be tied to an account. Nothing to
		// transition; acknowledge so the sender stops redelivering.
		log.Warn().Str("event_id", ev.EventID).Str("outcome", string(ev.Outcome)).
			Msg("payment event without account metadata, skipped")
		return ResultSkipped, nil
	}

	result := ResultSkipped
	err := r.store.ApplyTransition(ctx, ev.AccountID, func(current *Record) (*Record, error) {
		// Re-checked under the account lock: two deliveries of the same
		// event can race past the gateway's short-circuit.
		if current != nil && current.LastProcessedEventID == ev.EventID {
			result = ResultDuplicate
			return nil, nil
		}
		if current != nil && current.LastProcessedAt != nil && ev.OccurredAt.Before(*current.LastProcessedAt) {
			result = ResultStale
			return nil, nil
		}
		next, ok := r.transition(current, ev)
		if !ok {
			return nil, nil
		}
		result = ResultApplied
		return next, nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// transition computes the next record for an event that passed the
// idempotency and staleness gates. ok is false when there is nothing to do.
func (r *Reconciler) transition(current *Record, ev PaymentEvent) (*Record, bool) {
	switch ev.Outcome {
	case OutcomeApproved:
		plan, _ := r.catalog.Get(ev.PlanID)
		expires := plans.PeriodEnd(plan.BillingPeriod, ev.OccurredAt)
		next := Record{AccountID: ev.AccountID}
		if current != nil {
			next = *current
		}
		next.PlanID = ev.PlanID
		next.Status = StatusActive
		next.ProviderReference = ev.EventID
		next.ExpiresAt = &expires
		return stamped(&next, ev), true

	case OutcomePending:
		if current == nil {
			// Records are created by the first approved event; a pending
			// payment before that has nothing to attach to.
			log.Info().Str("event_id", ev.EventID).Str("account_id", ev.AccountID).
				Msg("pending payment for account without subscription record")
			return nil, false
		}
		next := *current
		next.Status = StatusPending
		return stamped(&next, ev), true

	case OutcomeRejected:
		if current == nil {
			return nil, false
		}
		// Rejection suspends access but keeps history. Cancellation is a
		// separate user-initiated action outside this event stream.
		next := *current
		next.Status = StatusSuspended
		return stamped(&next, ev), true
	}
	return nil, false
}

func stamped(rec *Record, ev PaymentEvent) *Record {
	occurred := ev.OccurredAt
	rec.LastProcessedEventID = ev.EventID
	rec.LastProcessedAt = &occurred
	return rec
}
