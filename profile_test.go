package mgm

import (
	"testing"
	"time"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

func strPtr(s string) *string { return &s }

func TestIdentifyDebouncer_SuppressesUnchangedProfile(t *testing.T) {
	d := newIdentifyDebouncer(adapters.NewMemoryStateStore(), adapters.NewNoOpLoggerAdapter())
	profile := &UserProfile{Email: strPtr("a@example.com"), Name: strPtr("Ada")}
	now := time.Now()

	if !d.shouldSend("user-1", profile, now) {
		t.Fatal("expected first identify to send")
	}
	d.markSent("user-1", profile, now)

	if d.shouldSend("user-1", profile, now.Add(time.Minute)) {
		t.Fatal("expected unchanged profile to be debounced")
	}
}

func TestIdentifyDebouncer_ResendsOnProfileChange(t *testing.T) {
	d := newIdentifyDebouncer(adapters.NewMemoryStateStore(), adapters.NewNoOpLoggerAdapter())
	now := time.Now()

	d.markSent("user-1", &UserProfile{Email: strPtr("a@example.com")}, now)

	if !d.shouldSend("user-1", &UserProfile{Email: strPtr("b@example.com")}, now) {
		t.Fatal("expected changed email to resend")
	}
	if !d.shouldSend("user-2", &UserProfile{Email: strPtr("a@example.com")}, now) {
		t.Fatal("expected changed user to resend")
	}
}

func TestIdentifyDebouncer_ResendsAfterWindow(t *testing.T) {
	d := newIdentifyDebouncer(adapters.NewMemoryStateStore(), adapters.NewNoOpLoggerAdapter())
	profile := &UserProfile{Name: strPtr("Ada")}
	now := time.Now()

	d.markSent("user-1", profile, now)

	if d.shouldSend("user-1", profile, now.Add(identifyResendWindow-time.Minute)) {
		t.Fatal("expected suppression inside the window")
	}
	if !d.shouldSend("user-1", profile, now.Add(identifyResendWindow+time.Minute)) {
		t.Fatal("expected resend past the window")
	}
}

func TestIdentifyDebouncer_ResetForcesResend(t *testing.T) {
	d := newIdentifyDebouncer(adapters.NewMemoryStateStore(), adapters.NewNoOpLoggerAdapter())
	profile := &UserProfile{Email: strPtr("a@example.com")}
	now := time.Now()

	d.markSent("user-1", profile, now)
	d.reset()

	if !d.shouldSend("user-1", profile, now) {
		t.Fatal("expected reset to force resend of identical profile")
	}
}

func TestUserProfile_IsEmpty(t *testing.T) {
	var nilProfile *UserProfile
	if !nilProfile.isEmpty() {
		t.Fatal("nil profile should be empty")
	}
	if !(&UserProfile{}).isEmpty() {
		t.Fatal("zero profile should be empty")
	}
	if (&UserProfile{Email: strPtr("a@example.com")}).isEmpty() {
		t.Fatal("profile with email should not be empty")
	}
}
