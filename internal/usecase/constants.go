package usecase

import "time"

const (
	// DefaultCacheTTL bounds staleness of cached listings.
	DefaultCacheTTL = time.Hour

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
