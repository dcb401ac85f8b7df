package adapters

import "sync"

// MemoryEventStore is an in-memory EventStore with the same contract as the
// durable default. Useful for tests and for hosts that opt out of
// persistence.
type MemoryEventStore struct {
	mu       sync.Mutex
	events   []Event
	capacity int
}

// Ensure MemoryEventStore implements EventStore interface
var _ EventStore = (*MemoryEventStore)(nil)

// NewMemoryEventStore creates an in-memory event store bounded to capacity
// events. A capacity of zero or less means unbounded.
func NewMemoryEventStore(capacity int) *MemoryEventStore {
	return &MemoryEventStore{capacity: capacity}
}

// Store appends an event, evicting the oldest entries once capacity is
// exceeded.
func (s *MemoryEventStore) Store(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if s.capacity > 0 && len(s.events) > s.capacity {
		overflow := len(s.events) - s.capacity
		s.events = append([]Event(nil), s.events[overflow:]...)
	}
	return nil
}

// Fetch returns up to limit of the oldest events without removing them.
func (s *MemoryEventStore) Fetch(limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]Event, limit)
	copy(out, s.events[:limit])
	return out, nil
}

// Remove deletes the oldest count events.
func (s *MemoryEventStore) Remove(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count <= 0 {
		return nil
	}
	if count > len(s.events) {
		count = len(s.events)
	}
	s.events = append([]Event(nil), s.events[count:]...)
	return nil
}

// Count returns the number of pending events.
func (s *MemoryEventStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), nil
}

// Clear removes all pending events.
func (s *MemoryEventStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}

// MemoryStateStore is an in-memory StateStore. State does not survive a
// process restart; intended for tests.
type MemoryStateStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// Ensure MemoryStateStore implements StateStore interface
var _ StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{values: make(map[string]string)}
}

func (s *MemoryStateStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStateStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStateStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
