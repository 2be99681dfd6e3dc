package security

import (
	"testing"
	"time"

	"github.com/acolita/remote-files-mcp/internal/testing/fakes/fakeclock"
)

var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestAuthRateLimiterLocksAfterMaxFailures(t *testing.T) {
	rl := NewAuthRateLimiter(3, 5*time.Minute, fakeclock.New(epoch))

	if locked, _ := rl.IsLocked("pi.local", "pi"); locked {
		t.Fatal("locked before any failure")
	}

	rl.RecordFailure("pi.local", "pi")
	rl.RecordFailure("pi.local", "pi")
	if locked, _ := rl.IsLocked("pi.local", "pi"); locked {
		t.Error("locked after 2 of 3 failures")
	}

	rl.RecordFailure("pi.local", "pi")
	locked, remaining := rl.IsLocked("pi.local", "pi")
	if !locked {
		t.Fatal("not locked after 3 failures")
	}
	if remaining != 5*time.Minute {
		t.Errorf("remaining = %v, want %v", remaining, 5*time.Minute)
	}

	if locked, _ := rl.IsLocked("pi.local", "root"); locked {
		t.Error("lockout leaked to another user")
	}
}

func TestAuthRateLimiterLockoutExpires(t *testing.T) {
	clock := fakeclock.New(epoch)
	rl := NewAuthRateLimiter(2, time.Minute, clock)

	rl.RecordFailure("h", "u")
	rl.RecordFailure("h", "u")

	clock.Advance(40 * time.Second)
	locked, remaining := rl.IsLocked("h", "u")
	if !locked || remaining != 20*time.Second {
		t.Errorf("IsLocked() = %v, %v; want true, 20s", locked, remaining)
	}

	clock.Advance(20 * time.Second)
	if locked, _ := rl.IsLocked("h", "u"); locked {
		t.Error("still locked after lockout duration")
	}

	// The count restarts after an expired lockout.
	rl.RecordFailure("h", "u")
	if locked, _ := rl.IsLocked("h", "u"); locked {
		t.Error("single failure after expiry locked again")
	}
}

func TestAuthRateLimiterSuccessResets(t *testing.T) {
	rl := NewAuthRateLimiter(3, time.Minute, fakeclock.New(epoch))

	rl.RecordFailure("h", "u")
	rl.RecordFailure("h", "u")
	rl.RecordSuccess("h", "u")
	rl.RecordFailure("h", "u")
	rl.RecordFailure("h", "u")

	if locked, _ := rl.IsLocked("h", "u"); locked {
		t.Error("success did not reset the failure count")
	}
}

func TestAuthRateLimiterCleanup(t *testing.T) {
	clock := fakeclock.New(epoch)
	rl := NewAuthRateLimiter(2, time.Minute, clock)

	rl.RecordFailure("locked", "u")
	rl.RecordFailure("locked", "u")
	rl.RecordFailure("stale", "u")

	clock.Advance(time.Minute)
	rl.Cleanup()
	if got := rl.Len(); got != 1 {
		t.Errorf("after expiry Len() = %d, want 1", got)
	}

	clock.Advance(time.Minute)
	rl.Cleanup()
	if got := rl.Len(); got != 0 {
		t.Errorf("after 2x lockout Len() = %d, want 0", got)
	}
}

func TestNewAuthRateLimiterDefaults(t *testing.T) {
	rl := NewAuthRateLimiter(0, 0, nil)
	if rl.maxFailures != DefaultMaxAuthFailures {
		t.Errorf("maxFailures = %d, want %d", rl.maxFailures, DefaultMaxAuthFailures)
	}
	if rl.lockoutDuration != DefaultAuthLockoutDuration {
		t.Errorf("lockoutDuration = %v, want %v", rl.lockoutDuration, DefaultAuthLockoutDuration)
	}
}
