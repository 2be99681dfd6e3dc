package security

import (
	"fmt"
	"sync"
	"time"

	"github.com/acolita/remote-files-mcp/internal/adapters/realclock"
	"github.com/acolita/remote-files-mcp/internal/ports"
)

// AuthRateLimiter locks out a user@host after repeated authentication
// failures.
type AuthRateLimiter struct {
	mu              sync.Mutex
	failures        map[string]*authFailure
	maxFailures     int
	lockoutDuration time.Duration
	clock           ports.Clock
}

type authFailure struct {
	count     int
	firstFail time.Time
	lockedAt  time.Time
}

const (
	DefaultMaxAuthFailures     = 5
	DefaultAuthLockoutDuration = 15 * time.Minute
)

// NewAuthRateLimiter creates a limiter. A nil clock uses the system clock.
func NewAuthRateLimiter(maxFailures int, lockoutDuration time.Duration, clock ports.Clock) *AuthRateLimiter {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxAuthFailures
	}
	if lockoutDuration <= 0 {
		lockoutDuration = DefaultAuthLockoutDuration
	}
	if clock == nil {
		clock = realclock.New()
	}

	return &AuthRateLimiter{
		failures:        make(map[string]*authFailure),
		maxFailures:     maxFailures,
		lockoutDuration: lockoutDuration,
		clock:           clock,
	}
}

func key(host, user string) string {
	return fmt.Sprintf("%s@%s", user, host)
}

// IsLocked reports whether user@host is locked out and for how much longer.
func (r *AuthRateLimiter) IsLocked(host, user string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.failures[key(host, user)]
	if !ok || f.lockedAt.IsZero() {
		return false, 0
	}

	elapsed := r.clock.Now().Sub(f.lockedAt)
	if elapsed >= r.lockoutDuration {
		return false, 0
	}
	return true, r.lockoutDuration - elapsed
}

// RecordFailure counts a failed authentication.
func (r *AuthRateLimiter) RecordFailure(host, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	k := key(host, user)
	f, ok := r.failures[k]
	if !ok {
		f = &authFailure{firstFail: now}
		r.failures[k] = f
	}

	if !f.lockedAt.IsZero() && now.Sub(f.lockedAt) >= r.lockoutDuration {
		*f = authFailure{firstFail: now}
	}

	f.count++
	if f.count >= r.maxFailures {
		f.lockedAt = now
	}
}

// RecordSuccess clears the failure count for user@host.
func (r *AuthRateLimiter) RecordSuccess(host, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, key(host, user))
}

// Cleanup removes expired lockouts and stale failure counts.
func (r *AuthRateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	for k, f := range r.failures {
		if !f.lockedAt.IsZero() && now.Sub(f.lockedAt) >= r.lockoutDuration {
			delete(r.failures, k)
			continue
		}
		if now.Sub(f.firstFail) >= 2*r.lockoutDuration {
			delete(r.failures, k)
		}
	}
}

// Len returns the number of tracked user@host entries.
func (r *AuthRateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}
