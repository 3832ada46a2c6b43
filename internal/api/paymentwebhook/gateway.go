package paymentwebhook

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"subscription-app/internal/domain/subscription"
	"subscription-app/internal/infra/mercadopago"
)

// IngestResult is the gateway's verdict on one notification: the reconciler's
// outcomes plus the gateway-only ignored case.
type IngestResult string

const (
	ResultIgnored   IngestResult = "ignored" // non-payment category, acknowledged
	ResultApplied                = IngestResult(subscription.ResultApplied)
	ResultDuplicate              = IngestResult(subscription.ResultDuplicate)
	ResultStale                  = IngestResult(subscription.ResultStale)
	ResultSkipped                = IngestResult(subscription.ResultSkipped)
)

// PaymentLookup fetches authoritative payment details from the processor.
type PaymentLookup interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// RecordReader is the slice of the entitlement store the gateway reads for
// its idempotency short-circuit.
type RecordReader interface {
	GetSubscription(ctx context.Context, accountID string) (*subscription.Record, error)
}

// Gateway turns inbound notifications into normalized payment events and
// hands each distinct, resolvable payment event to the reconciler exactly
// once. Redelivery of the same event short-circuits; the gateway never
// retries internally — a failed lookup becomes a retryable answer and the
// sender's redelivery does the rest.
type Gateway struct {
	lookup     PaymentLookup
	records    RecordReader
	reconciler *subscription.Reconciler
}

func NewGateway(lookup PaymentLookup, records RecordReader, reconciler *subscription.Reconciler) *Gateway {
	return &Gateway{lookup: lookup, records: records, reconciler: reconciler}
}

func (g *Gateway) Ingest(ctx context.Context, n Notification) (IngestResult, error) {
	if n.Data.ID == "" {
		return "", fmt.Errorf("notification missing data.id: %w", subscription.ErrInvalidInput)
	}
	if n.Type != "payment" {
		// Other categories (merchant_order etc.) carry nothing this engine
		// trusts; acknowledge and move on.
		log.Debug().Str("type", n.Type).Str("id", n.Data.ID).Msg("non-payment notification discarded")
		return ResultIgnored, nil
	}

	payment, err := g.lookup.GetPayment(ctx, n.Data.ID)
	if err != nil {
		return "", fmt.Errorf("lookup for payment %s: %v: %w", n.Data.ID, err, subscription.ErrUpstreamUnavailable)
	}

	ev := normalize(payment)

	// Duplicate delivery of the same event: short-circuit before touching
	// the reconciler. Two different events racing are ordered by the
	// reconciler's occurred-at rule instead.
	if ev.AccountID != "" {
		rec, err := g.records.GetSubscription(ctx, ev.AccountID)
		if err != nil {
			return "", err
		}
		if rec != nil && rec.LastProcessedEventID == ev.EventID {
			return ResultDuplicate, nil
		}
	}

	result, err := g.reconciler.Apply(ctx, ev)
	if err != nil {
		return "", err
	}
	return IngestResult(result), nil
}

func normalize(p *mercadopago.Payment) subscription.PaymentEvent {
	occurred := p.OccurredAt()
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return subscription.PaymentEvent{
		EventID:           p.ID.String(),
		AccountID:         p.Metadata.UserID,
		PlanID:            p.Metadata.PlanType,
		Outcome:           mercadopago.MapStatus(p.Status),
		AmountCents:       int64(math.Round(p.TransactionAmount * 100)),
		OccurredAt:        occurred,
		RawProviderStatus: p.Status,
	}
}
