package mercadopago

import (
	"strings"

	"subscription-app/internal/domain/subscription"
)

// MapStatus translates Mercado Pago's payment status vocabulary into the
// engine's canonical outcome. Total over any input: unmapped statuses come
// back as OutcomeUnknown, which callers must treat as non-terminal.
func MapStatus(providerStatus string) subscription.Outcome {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "approved":
		return subscription.OutcomeApproved
	case "pending", "in_process", "in_mediation", "authorized":
		return subscription.OutcomePending
	case "rejected", "cancelled", "refunded", "charged_back":
		return subscription.OutcomeRejected
	default:
		return subscription.OutcomeUnknown
	}
}
