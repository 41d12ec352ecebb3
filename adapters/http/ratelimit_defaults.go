package authhttp

import (
	"time"

	memorylimiter "github.com/servxpert/authcore/ratelimit/memory"
	redislimiter "github.com/servxpert/authcore/ratelimit/redis"
)

// Limit configures a named rate limit bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultRateLimits returns the built-in per-endpoint rate limits.
//
// These limits are enforced per client IP (as determined by the Service's
// ClientIPFunc). Hosts can override by supplying their own limiter via
// WithRateLimiter(...).
func DefaultRateLimits() map[string]Limit {
	return map[string]Limit{
		"default": {Limit: 120, Window: time.Minute},

		// OTP issuance is the expensive, abusable path.
		RLOTPIssue:       {Limit: 6, Window: 10 * time.Minute},
		RLOTPVerify:      {Limit: 20, Window: 10 * time.Minute},
		RLSignupComplete: {Limit: 10, Window: 10 * time.Minute},

		RLAuthToken:  {Limit: 30, Window: time.Minute},
		RLAuthLogout: {Limit: 60, Window: 10 * time.Minute},
		RLUserMe:     {Limit: 120, Window: time.Minute},
		RLAdminRole:  {Limit: 30, Window: time.Hour},

		RLServicesList:    {Limit: 120, Window: time.Minute},
		RLBookingCreate:   {Limit: 30, Window: time.Hour},
		RLBookingList:     {Limit: 120, Window: time.Minute},
		RLBookingAssign:   {Limit: 120, Window: time.Hour},
		RLBookingStatus:   {Limit: 120, Window: time.Hour},
		RLWorkerLocation:  {Limit: 600, Window: time.Minute},
		RLWorkerLocStream: {Limit: 30, Window: 10 * time.Minute},
	}
}

func ToMemoryLimits(in map[string]Limit) map[string]memorylimiter.Limit {
	out := make(map[string]memorylimiter.Limit, len(in))
	for k, v := range in {
		out[k] = memorylimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}

func ToRedisLimits(in map[string]Limit) map[string]redislimiter.Limit {
	out := make(map[string]redislimiter.Limit, len(in))
	for k, v := range in {
		out[k] = redislimiter.Limit{Limit: v.Limit, Window: v.Window}
	}
	return out
}
