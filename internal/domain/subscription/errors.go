package subscription

import "errors"

var (
	// ErrInvalidInput marks a structurally bad notification. Not retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks a failed processor lookup. The inbound
	// transport answers 5xx so the processor's own retry resends.
	ErrUpstreamUnavailable = errors.New("payment processor unavailable")

	// ErrMetadataIncomplete marks an approved event missing its account or
	// plan linkage. The event is left unprocessed so a corrected resend
	// can succeed.
	ErrMetadataIncomplete = errors.New("payment metadata incomplete")

	// ErrLimitExceeded is a denial, not a failure: usage is at capacity.
	ErrLimitExceeded = errors.New("plan limit exceeded")

	// ErrSubscriptionInactive is a denial for any non-active subscription,
	// kept distinct from ErrLimitExceeded so callers can message
	// "reactivate" instead of "upgrade".
	ErrSubscriptionInactive = errors.New("subscription not active")
)
