package adapters

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
)

// Key prefixes for the record types kept in BadgerDB.
const (
	prefixQueue = "q:" // pending event queue: q:<ulid>
	prefixState = "s:" // key-value SDK state: s:<key>
)

// BadgerStorage is the default durable backing store. One handle serves both
// the pending event queue and the key-value state store.
type BadgerStorage struct {
	db *badger.DB
}

// OpenBadgerStorage creates or opens the store at the given path.
func OpenBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable BadgerDB's default logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStorage{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// EventStore returns a durable event queue bounded to capacity events.
func (s *BadgerStorage) EventStore(capacity int) *BadgerEventStore {
	return &BadgerEventStore{
		db:       s.db,
		ulids:    newULIDSource(),
		capacity: capacity,
	}
}

// StateStore returns the durable key-value state store.
func (s *BadgerStorage) StateStore() *BadgerStateStore {
	return &BadgerStateStore{db: s.db}
}

// ulidSource provides monotonic ULID generation so that queue keys written
// within the same millisecond still sort in insertion order.
type ulidSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newULIDSource() *ulidSource {
	return &ulidSource{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *ulidSource) Now() ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy)
}

// encodeQueueKey creates a queue key from a ULID.
// Format: q:<ulid>
func encodeQueueKey(id ulid.ULID) []byte {
	key := make([]byte, 0, len(prefixQueue)+26)
	key = append(key, prefixQueue...)
	key = append(key, id.String()...)
	return key
}

// BadgerEventStore is the durable EventStore default. Events are stored as
// JSON under monotonic ULID keys, so badger's key order is FIFO order.
type BadgerEventStore struct {
	db       *badger.DB
	ulids    *ulidSource
	capacity int
}

// Ensure BadgerEventStore implements EventStore interface
var _ EventStore = (*BadgerEventStore)(nil)

// Store appends an event and evicts from the front when the queue exceeds
// its capacity. Eviction happens in the same transaction as the append.
func (s *BadgerEventStore) Store(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ClientEventID, err)
	}

	key := encodeQueueKey(s.ulids.Now())
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if s.capacity <= 0 {
			return nil
		}
		keys := queueKeys(txn)
		if overflow := len(keys) - s.capacity; overflow > 0 {
			for _, stale := range keys[:overflow] {
				if err := txn.Delete(stale); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Fetch returns up to limit of the oldest events without removing them.
func (s *BadgerEventStore) Fetch(limit int) ([]Event, error) {
	var events []Event
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixQueue)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(events) >= limit {
				break
			}
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var event Event
			if err := json.Unmarshal(data, &event); err != nil {
				return fmt.Errorf("failed to unmarshal queued event: %w", err)
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Remove deletes the oldest count events.
func (s *BadgerEventStore) Remove(count int) error {
	if count <= 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		keys := queueKeys(txn)
		if count > len(keys) {
			count = len(keys)
		}
		for _, key := range keys[:count] {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of pending events.
func (s *BadgerEventStore) Count() (int, error) {
	var count int
	err := s.db.View(func(txn *badger.Txn) error {
		count = len(queueKeys(txn))
		return nil
	})
	return count, err
}

// Clear removes all pending events.
func (s *BadgerEventStore) Clear() error {
	return s.db.DropPrefix([]byte(prefixQueue))
}

// queueKeys returns all queue keys in key (FIFO) order. Queue sizes are
// bounded by configuration, so a full key scan stays cheap.
func queueKeys(txn *badger.Txn) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixQueue)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// BadgerStateStore is the durable StateStore default.
type BadgerStateStore struct {
	db *badger.DB
}

// Ensure BadgerStateStore implements StateStore interface
var _ StateStore = (*BadgerStateStore)(nil)

func (s *BadgerStateStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixState + key))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = string(data)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *BadgerStateStore) Set(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixState+key), []byte(value))
	})
}

func (s *BadgerStateStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(prefixState + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
