package adapters

// EventStore is an interface for the durable pending-event queue.
// Implement this interface to use custom storage backends.
//
// The store is an ordered FIFO sequence: Fetch returns the oldest events
// without removing them, and Remove deletes from the front only. Events are
// never edited in place; the only mutation after Store is removal.
type EventStore interface {
	// Store appends an event. If the store is capacity-bounded and the
	// append exceeds the bound, the oldest events are evicted.
	Store(event Event) error

	// Fetch returns up to limit of the oldest events in stable order
	// without removing them.
	Fetch(limit int) ([]Event, error)

	// Remove deletes the oldest count events. Used only after confirmed
	// delivery.
	Remove(count int) error

	// Count returns the number of pending events.
	Count() (int, error)

	// Clear removes all pending events.
	Clear() error
}
