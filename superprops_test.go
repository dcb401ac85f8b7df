package mgm

import (
	"testing"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

func TestSuperProperties_SetGetRemove(t *testing.T) {
	p := newSuperProperties(adapters.NewMemoryStateStore())

	p.set("plan", "free")
	p.setAll(map[string]any{"source": "organic", "plan": "pro"})

	if got, ok := p.get("plan"); !ok || got != "pro" {
		t.Fatalf("expected plan=pro, got %v (present=%v)", got, ok)
	}
	if got, ok := p.get("source"); !ok || got != "organic" {
		t.Fatalf("expected source=organic, got %v", got)
	}

	p.remove("plan")
	if _, ok := p.get("plan"); ok {
		t.Fatal("expected plan removed")
	}
	if _, ok := p.get("source"); !ok {
		t.Fatal("expected source untouched by remove")
	}

	p.clear()
	if len(p.getAll()) != 0 {
		t.Fatalf("expected empty map after clear, got %v", p.getAll())
	}
}

func TestSuperProperties_GetAllReturnsCopy(t *testing.T) {
	p := newSuperProperties(adapters.NewMemoryStateStore())
	p.set("plan", "free")

	snapshot := p.getAll()
	snapshot["plan"] = "tampered"

	if got, _ := p.get("plan"); got != "free" {
		t.Fatalf("mutating the snapshot leaked into the store: %v", got)
	}
}

func TestSuperProperties_PersistAcrossRestarts(t *testing.T) {
	state := adapters.NewMemoryStateStore()

	first := newSuperProperties(state)
	first.set("plan", "pro")
	first.set("beta", true)

	second := newSuperProperties(state)
	if err := second.restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if got, _ := second.get("plan"); got != "pro" {
		t.Fatalf("expected plan restored, got %v", got)
	}
	if got, _ := second.get("beta"); got != true {
		t.Fatalf("expected beta restored, got %v", got)
	}
}

func TestSuperProperties_RestoreWithEmptyStateStartsEmpty(t *testing.T) {
	p := newSuperProperties(adapters.NewMemoryStateStore())
	if err := p.restore(); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if len(p.getAll()) != 0 {
		t.Fatalf("expected empty properties, got %v", p.getAll())
	}
}
