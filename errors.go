package mgm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned by public calls made before Configure.
	ErrNotConfigured = errors.New("mgm: client is not configured")
)

// ValidationError reports an invalid event name or property shape. It is the
// only error class Track surfaces synchronously; delivery and storage
// failures are handled internally with retain-and-retry semantics.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mgm: invalid %s: %s", e.Field, e.Reason)
}
