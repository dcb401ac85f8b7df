package mgm

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

const (
	anonymousIDPrefix = "$anon_"
	anonymousIDLength = 12
)

const alphanumerics = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// identityManager tracks the identified user id, the stable per-install
// anonymous id, and the current session id, persisting all three.
type identityManager struct {
	state  adapters.StateStore
	logger adapters.LoggerAdapter

	mu          sync.RWMutex
	userID      string
	anonymousID string
	sessionID   string
}

func newIdentityManager(state adapters.StateStore, logger adapters.LoggerAdapter) *identityManager {
	return &identityManager{state: state, logger: logger}
}

// restore loads persisted identity. If no anonymous id exists yet, one is
// synthesized and persisted immediately so a stable anonymous identity
// survives restarts before any Identify call.
func (m *identityManager) restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, _, err := m.state.Get(keyUserID)
	if err != nil {
		return fmt.Errorf("restore user id: %w", err)
	}
	m.userID = userID

	anonymousID, ok, err := m.state.Get(keyAnonymousID)
	if err != nil {
		return fmt.Errorf("restore anonymous id: %w", err)
	}
	if !ok || anonymousID == "" {
		anonymousID = anonymousIDPrefix + randomAlphanumeric(anonymousIDLength)
		if err := m.state.Set(keyAnonymousID, anonymousID); err != nil {
			return fmt.Errorf("persist anonymous id: %w", err)
		}
	}
	m.anonymousID = anonymousID
	return nil
}

// effectiveUserID returns the identified user id if set, else the anonymous
// id. It stamps events and keys experiment bucketing.
func (m *identityManager) effectiveUserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.userID != "" {
		return m.userID
	}
	return m.anonymousID
}

func (m *identityManager) currentSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

func (m *identityManager) currentUserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

func (m *identityManager) setUser(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = id
	if err := m.state.Set(keyUserID, id); err != nil {
		return fmt.Errorf("persist user id: %w", err)
	}
	return nil
}

// clearUser removes the identified user. The anonymous id is untouched.
func (m *identityManager) clearUser() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = ""
	if err := m.state.Delete(keyUserID); err != nil {
		return fmt.Errorf("clear user id: %w", err)
	}
	return nil
}

// rotateSession generates a fresh session id and persists it before any
// event can be stamped with it.
func (m *identityManager) rotateSession() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID := uuid.NewString()
	if err := m.state.Set(keySessionID, sessionID); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	m.sessionID = sessionID
	return sessionID, nil
}

// randomAlphanumeric returns n random characters from [a-zA-Z0-9].
func randomAlphanumeric(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to
		// a fixed id rather than panicking inside the host application.
		return strings.Repeat("0", n)
	}
	for i, b := range buf {
		buf[i] = alphanumerics[int(b)%len(alphanumerics)]
	}
	return string(buf)
}
