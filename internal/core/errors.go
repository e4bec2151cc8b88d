package core

import "errors"

// Pipeline error taxonomy. Components wrap these sentinels so callers
// can branch with errors.Is regardless of which collaborator failed.
var (
	// ErrInvalidSignature means the webhook HMAC did not match. The
	// event is rejected with no side effects and never retried.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrDuplicateEvent marks an event already processed. Treated as a
	// no-op success at the gateway.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrPayloadTooLarge is the LLM provider's 413 class. At the
	// whole-diff level it triggers the chunked fallback; at the file
	// level it marks that file skipped.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrRateLimited is the provider's 429 class. Mid-chunk-loop it
	// stops iteration and yields a partial review; on the whole-diff
	// call it is a plain transient failure for the queue to retry.
	ErrRateLimited = errors.New("rate limited")

	// ErrPublishFailed wraps a failed dismissal or review-creation call.
	// The task is retried; dismissal-before-creation guarantees at most
	// one live bot review either way.
	ErrPublishFailed = errors.New("publish failed")

	// ErrReviewsDisabled means the repository's policy file turns the
	// bot off. The task terminates as skipped, not as a failure.
	ErrReviewsDisabled = errors.New("reviews disabled for repository")
)

// Transient reports whether an error should be retried by the queue.
// Everything not explicitly terminal is considered transient: losing a
// review to a misclassified error is worse than one redundant retry.
func Transient(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrDuplicateEvent),
		errors.Is(err, ErrReviewsDisabled):
		return false
	default:
		return true
	}
}
