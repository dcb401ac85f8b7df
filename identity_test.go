package mgm

import (
	"strings"
	"testing"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

func TestIdentity_RestoreSynthesizesAnonymousID(t *testing.T) {
	state := adapters.NewMemoryStateStore()
	m := newIdentityManager(state, adapters.NewNoOpLoggerAdapter())

	if err := m.restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	id := m.effectiveUserID()
	if !strings.HasPrefix(id, anonymousIDPrefix) {
		t.Fatalf("expected anonymous id prefix, got %q", id)
	}
	if len(id) != len(anonymousIDPrefix)+anonymousIDLength {
		t.Fatalf("unexpected anonymous id length: %q", id)
	}

	persisted, ok, _ := state.Get(keyAnonymousID)
	if !ok || persisted != id {
		t.Fatalf("expected anonymous id persisted, got %q", persisted)
	}
}

func TestIdentity_AnonymousIDStableAcrossRestarts(t *testing.T) {
	state := adapters.NewMemoryStateStore()

	first := newIdentityManager(state, adapters.NewNoOpLoggerAdapter())
	if err := first.restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	second := newIdentityManager(state, adapters.NewNoOpLoggerAdapter())
	if err := second.restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	if first.effectiveUserID() != second.effectiveUserID() {
		t.Fatalf("anonymous id changed across restarts: %q vs %q",
			first.effectiveUserID(), second.effectiveUserID())
	}
}

func TestIdentity_EffectiveUserIDPrefersIdentifiedUser(t *testing.T) {
	state := adapters.NewMemoryStateStore()
	m := newIdentityManager(state, adapters.NewNoOpLoggerAdapter())
	m.restore()

	anon := m.effectiveUserID()

	if err := m.setUser("user-42"); err != nil {
		t.Fatalf("setUser failed: %v", err)
	}
	if got := m.effectiveUserID(); got != "user-42" {
		t.Fatalf("expected identified user, got %q", got)
	}

	if err := m.clearUser(); err != nil {
		t.Fatalf("clearUser failed: %v", err)
	}
	if got := m.effectiveUserID(); got != anon {
		t.Fatalf("expected fall back to anonymous id %q, got %q", anon, got)
	}
}

func TestIdentity_UserIDSurvivesRestart(t *testing.T) {
	state := adapters.NewMemoryStateStore()
	m := newIdentityManager(state, adapters.NewNoOpLoggerAdapter())
	m.restore()
	m.setUser("user-42")

	reloaded := newIdentityManager(state, adapters.NewNoOpLoggerAdapter())
	if err := reloaded.restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if got := reloaded.currentUserID(); got != "user-42" {
		t.Fatalf("expected user id restored, got %q", got)
	}
}

func TestIdentity_RotateSessionPersistsFreshID(t *testing.T) {
	state := adapters.NewMemoryStateStore()
	m := newIdentityManager(state, adapters.NewNoOpLoggerAdapter())
	m.restore()

	first, err := m.rotateSession()
	if err != nil {
		t.Fatalf("rotateSession failed: %v", err)
	}
	if first == "" {
		t.Fatal("expected non-empty session id")
	}
	if got := m.currentSessionID(); got != first {
		t.Fatalf("expected current session %q, got %q", first, got)
	}

	persisted, ok, _ := state.Get(keySessionID)
	if !ok || persisted != first {
		t.Fatalf("expected session id persisted, got %q", persisted)
	}

	second, _ := m.rotateSession()
	if second == first {
		t.Fatal("expected a fresh session id on rotation")
	}
}
