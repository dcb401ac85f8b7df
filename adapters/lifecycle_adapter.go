package adapters

import "sync"

// LifecycleObserver receives host application foreground/background
// transitions.
type LifecycleObserver interface {
	OnForeground()
	OnBackground()
}

// LifecycleAdapter is an interface for host application lifecycle signals.
// A thin platform-specific adapter implements it outside the core; the
// orchestrator registers at configure time and unregisters on teardown.
type LifecycleAdapter interface {
	Register(observer LifecycleObserver)
	Unregister(observer LifecycleObserver)
}

// ManualLifecycleAdapter lets the host (or a test) drive lifecycle
// transitions explicitly.
type ManualLifecycleAdapter struct {
	mu        sync.Mutex
	observers []LifecycleObserver
}

// Ensure ManualLifecycleAdapter implements LifecycleAdapter interface
var _ LifecycleAdapter = (*ManualLifecycleAdapter)(nil)

// NewManualLifecycleAdapter creates an adapter with no observers.
func NewManualLifecycleAdapter() *ManualLifecycleAdapter {
	return &ManualLifecycleAdapter{}
}

func (m *ManualLifecycleAdapter) Register(observer LifecycleObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, observer)
}

func (m *ManualLifecycleAdapter) Unregister(observer LifecycleObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.observers {
		if o == observer {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// Foreground notifies all observers of a foreground transition.
func (m *ManualLifecycleAdapter) Foreground() {
	for _, o := range m.snapshot() {
		o.OnForeground()
	}
}

// Background notifies all observers of a background transition.
func (m *ManualLifecycleAdapter) Background() {
	for _, o := range m.snapshot() {
		o.OnBackground()
	}
}

func (m *ManualLifecycleAdapter) snapshot() []LifecycleObserver {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LifecycleObserver, len(m.observers))
	copy(out, m.observers)
	return out
}

// NoOpLifecycleAdapter never reports transitions. The default for hosts
// without an application lifecycle.
type NoOpLifecycleAdapter struct{}

// NewNoOpLifecycleAdapter creates a new NoOpLifecycleAdapter instance.
func NewNoOpLifecycleAdapter() *NoOpLifecycleAdapter {
	return &NoOpLifecycleAdapter{}
}

func (n *NoOpLifecycleAdapter) Register(observer LifecycleObserver)   {}
func (n *NoOpLifecycleAdapter) Unregister(observer LifecycleObserver) {}
