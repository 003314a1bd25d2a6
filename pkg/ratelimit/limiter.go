package ratelimit

import (
	"context"
	"math"
	"time"
)

type Policy struct {
	// Name namespaces keys so several limiters can share one Store.
	Name     string
	Window   time.Duration
	Max      int
	Message  string
	Disabled bool
}

var (
	AuthPolicy = Policy{
		Name:    "auth",
		Window:  15 * time.Minute,
		Max:     5,
		Message: "Too many authentication attempts, please try again later",
	}
	APIPolicy = Policy{
		Name:    "api",
		Window:  15 * time.Minute,
		Max:     100,
		Message: "Too many requests, please slow down",
	}
)

type Decision struct {
	Allowed    bool
	Count      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

type Limiter struct {
	Store  Store
	Policy Policy
	Now    func() time.Time
}

func NewLimiter(store Store, policy Policy) *Limiter {
	return &Limiter{Store: store, Policy: policy, Now: time.Now}
}

func (l *Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Check records one request for key and reports whether it fits the window.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	if l.Policy.Disabled {
		return Decision{Allowed: true, Remaining: l.Policy.Max}, nil
	}

	if l.Policy.Name != "" {
		key = l.Policy.Name + "|" + key
	}
	now := l.now()
	entry, err := l.Store.Hit(ctx, key, l.Policy.Window, now)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Allowed:   entry.Count <= l.Policy.Max,
		Count:     entry.Count,
		Remaining: max(l.Policy.Max-entry.Count, 0),
		ResetAt:   entry.ExpiresAt,
	}
	if !d.Allowed {
		d.RetryAfter = RetryAfterSeconds(entry.ExpiresAt, now)
	}
	return d, nil
}

// RetryAfterSeconds is ceil((expiresAt - now) / 1s), never below 1.
func RetryAfterSeconds(expiresAt, now time.Time) int {
	return max(1, int(math.Ceil(float64(expiresAt.Sub(now).Milliseconds())/1000)))
}
