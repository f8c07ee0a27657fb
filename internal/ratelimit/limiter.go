package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// UnknownClient is the identifier used when no forwarding header is present.
// All such requests share one budget.
const UnknownClient = "unknown"

// Policy describes a fixed window: at most Limit admissions per Window
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicy admits five submissions per hour
func DefaultPolicy() Policy {
	return Policy{Limit: 5, Window: time.Hour}
}

// Record is the per-client window state
type Record struct {
	Count   int
	ResetAt time.Time
}

// Decision is the outcome of one admission check
type Decision struct {
	Allowed    bool
	Count      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store keeps window records. Hit must run the read-check-update as one atomic step.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, policy Policy) (Record, bool, error)
	Ping(ctx context.Context) error
}

// Limiter applies a fixed-window policy on top of a Store
type Limiter struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// NewLimiter creates a limiter. A zero policy falls back to DefaultPolicy.
func NewLimiter(store Store, policy Policy) *Limiter {
	if policy.Limit <= 0 || policy.Window <= 0 {
		policy = DefaultPolicy()
	}
	return &Limiter{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// Policy returns the active policy
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Allow counts one attempt for key and reports whether it is admitted
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	record, allowed, err := l.store.Hit(ctx, key, now, l.policy)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Allowed:   allowed,
		Count:     record.Count,
		Remaining: l.policy.Limit - record.Count,
		ResetAt:   record.ResetAt,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !allowed {
		decision.RetryAfter = record.ResetAt.Sub(now)
	}

	return decision, nil
}

// Ping checks that the backing store is reachable
func (l *Limiter) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// apply is the fixed-window transition shared by every store
func apply(current Record, exists bool, now time.Time, policy Policy) (Record, bool) {
	if !exists || !now.Before(current.ResetAt) {
		return Record{Count: 1, ResetAt: now.Add(policy.Window)}, true
	}
	if current.Count < policy.Limit {
		current.Count++
		return current, true
	}
	return current, false
}

// ClientIdentifier picks the key requests are counted under: the first
// X-Forwarded-For entry, then X-Real-IP, then UnknownClient.
func ClientIdentifier(h http.Header) string {
	if forwarded := h.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(h.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}
