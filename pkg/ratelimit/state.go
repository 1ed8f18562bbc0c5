// Package ratelimit tracks the news API request quota and gates requests.
// It monitors the X-RateLimit-Requests-Remaining and X-RateLimit-Requests-Reset
// headers so that a shared quota is not exhausted by concurrent clients.
package ratelimit

import (
	"time"
)

// Quota headers returned by the news API gateway.
const (
	HeaderRequestsRemaining = "X-RateLimit-Requests-Remaining"
	HeaderRequestsReset     = "X-RateLimit-Requests-Reset"
)

// Redis keys for quota state storage.
const (
	RedisKeyRequestsRemaining = "news:rate_limit:requests_remaining"
	RedisKeyResetTimestamp    = "news:rate_limit:reset_timestamp"
	RedisKeyLastUpdate        = "news:rate_limit:last_update"
)

// Thresholds for quota decisions.
const (
	// ThresholdCritical blocks all requests when fewer requests remain.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when fewer requests remain.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 50
)

// defaultRequestsRemaining is assumed until the API reports a real value.
const defaultRequestsRemaining = 100

// RateLimitState represents the current quota state.
// This state is shared across all client instances via Redis.
type RateLimitState struct {
	// RequestsRemaining is the number of requests left in the quota window.
	// Extracted from the X-RateLimit-Requests-Remaining header.
	RequestsRemaining int `json:"requests_remaining"`

	// ResetAt is when the quota window resets.
	// Calculated from the X-RateLimit-Requests-Reset header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when RequestsRemaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.RequestsRemaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.RequestsRemaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the quota resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current RequestsRemaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.RequestsRemaining >= ThresholdHealthy
}
