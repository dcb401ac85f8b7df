package adapters

// StateStore is an interface for persisted key-value SDK state (identity,
// sessions, super properties, caches). Implement this interface to use a
// custom preference store.
type StateStore interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores the value for key, overwriting any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
