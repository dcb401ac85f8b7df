package mgm

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

const (
	// experimentCacheTTL bounds how long a fetched assignment set stays
	// valid for the user it was computed for.
	experimentCacheTTL = 24 * time.Hour

	// experimentPropertyPrefix is the super-property key prefix memoizing
	// resolved variants, $-prefixed like the reserved event names.
	experimentPropertyPrefix = "$experiment_"
)

// defaultVariants is the degraded-mode bucket set used before assignments
// have loaded, so callers are never blocked on the network.
var defaultVariants = []string{"a", "b"}

// experimentCache is the persisted assignment set, tagged with the user it
// was fetched for.
type experimentCache struct {
	UserID    string            `json:"user_id"`
	FetchedAt int64             `json:"fetched_at"`
	Variants  map[string]string `json:"variants"`
}

// experimentEngine assigns and caches a variant per experiment per effective
// user. Assignments come from the server when available; otherwise variants
// are bucketed deterministically client-side.
type experimentEngine struct {
	state      adapters.StateStore
	network    adapters.NetworkAdapter
	superProps *superProperties
	logger     adapters.LoggerAdapter
	endpoint   string
	headers    map[string]string

	mu          sync.Mutex
	userID      string
	assignments map[string]string
	loaded      bool
	generation  int
	ready       chan struct{}
}

func newExperimentEngine(
	state adapters.StateStore,
	network adapters.NetworkAdapter,
	superProps *superProperties,
	logger adapters.LoggerAdapter,
	endpoint string,
	headers map[string]string,
) *experimentEngine {
	return &experimentEngine{
		state:      state,
		network:    network,
		superProps: superProps,
		logger:     logger,
		endpoint:   endpoint,
		headers:    headers,
		ready:      make(chan struct{}),
	}
}

// Ready returns a channel closed once assignments have loaded, whether the
// fetch succeeded or not. All callers before the load share one channel;
// after the load it is already closed.
func (e *experimentEngine) Ready() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// reset discards in-memory assignments and supersedes any in-flight fetch,
// keeping the persisted cache (it is still user-tagged and TTL-checked on
// restore). Used on (re)configure; the caller kicks off a fresh load.
func (e *experimentEngine) reset(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = userID
	e.assignments = nil
	e.generation++
	if e.loaded {
		e.loaded = false
		e.ready = make(chan struct{})
	}
}

// invalidate additionally drops the persisted cache and the memoized
// experiment super properties. Used when the effective user changes.
func (e *experimentEngine) invalidate(userID string) {
	e.reset(userID)

	if err := e.state.Delete(keyExperimentsCache); err != nil {
		e.logger.Warn("failed to clear experiment cache: %v", err)
	}
	for key := range e.superProps.getAll() {
		if strings.HasPrefix(key, experimentPropertyPrefix) {
			if err := e.superProps.remove(key); err != nil {
				e.logger.Warn("failed to remove experiment property %s: %v", key, err)
			}
		}
	}
}

// load resolves assignments for userID, from the persisted cache when fresh,
// else from the network. Results from a superseded generation (the user
// changed, or the client was reconfigured, while the fetch was in flight)
// are discarded.
func (e *experimentEngine) load(userID string) {
	e.mu.Lock()
	e.userID = userID
	generation := e.generation
	e.mu.Unlock()

	if cached := e.restoreCache(userID); cached != nil {
		e.apply(generation, cached)
		return
	}

	endpoint := e.endpoint + "?user_id=" + url.QueryEscape(userID)
	resp, err := e.network.FetchExperiments(endpoint, e.headers)
	if err != nil {
		e.logger.Warn("experiment fetch failed: %v", err)
		e.apply(generation, map[string]string{})
		return
	}

	assignments := resolveAssignments(resp, userID)
	e.persistCache(userID, assignments)
	e.apply(generation, assignments)
}

// apply installs fetched assignments unless the generation moved on.
func (e *experimentEngine) apply(generation int, assignments map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if generation != e.generation {
		e.logger.Debug("discarding stale experiment assignments")
		return
	}
	e.assignments = assignments
	if !e.loaded {
		e.loaded = true
		close(e.ready)
	}
}

// GetVariant resolves the variant for an experiment. The result is memoized
// as a super property so subsequent events carry it and repeated calls are
// stable. Returns empty when the experiment is unknown.
func (e *experimentEngine) GetVariant(name string) string {
	propertyKey := experimentPropertyPrefix + snakeCase(name)

	if existing, ok := e.superProps.get(propertyKey); ok {
		if variant, ok := existing.(string); ok {
			return variant
		}
	}

	e.mu.Lock()
	var variant string
	if e.loaded {
		assigned, ok := e.assignments[name]
		if !ok {
			e.mu.Unlock()
			return ""
		}
		variant = assigned
	} else {
		// Assignments not loaded yet: deterministic fallback so callers
		// are never blocked.
		variant = bucketVariant(e.userID, name, defaultVariants)
	}
	e.mu.Unlock()

	if err := e.superProps.set(propertyKey, variant); err != nil {
		e.logger.Warn("failed to persist experiment property %s: %v", propertyKey, err)
	}
	return variant
}

// restoreCache returns the persisted assignments when they belong to userID
// and are younger than the cache TTL, nil otherwise.
func (e *experimentEngine) restoreCache(userID string) map[string]string {
	blob, ok, err := e.state.Get(keyExperimentsCache)
	if err != nil {
		e.logger.Warn("failed to read experiment cache: %v", err)
		return nil
	}
	if !ok || blob == "" {
		return nil
	}

	var cache experimentCache
	if err := json.Unmarshal([]byte(blob), &cache); err != nil {
		e.logger.Warn("failed to decode experiment cache: %v", err)
		return nil
	}
	if cache.UserID != userID {
		return nil
	}
	if time.Since(time.UnixMilli(cache.FetchedAt)) >= experimentCacheTTL {
		return nil
	}
	return cache.Variants
}

func (e *experimentEngine) persistCache(userID string, assignments map[string]string) {
	blob, err := json.Marshal(experimentCache{
		UserID:    userID,
		FetchedAt: time.Now().UnixMilli(),
		Variants:  assignments,
	})
	if err != nil {
		e.logger.Warn("failed to encode experiment cache: %v", err)
		return
	}
	if err := e.state.Set(keyExperimentsCache, string(blob)); err != nil {
		e.logger.Warn("failed to persist experiment cache: %v", err)
	}
}

// resolveAssignments prefers server-assigned variants and falls back to
// deterministic bucketing over server-supplied definitions.
func resolveAssignments(resp *adapters.ExperimentsResponse, userID string) map[string]string {
	assignments := make(map[string]string, len(resp.AssignedVariants)+len(resp.Experiments))
	for _, def := range resp.Experiments {
		if len(def.Variants) == 0 {
			continue
		}
		assignments[def.ID] = bucketVariant(userID, def.ID, def.Variants)
	}
	for name, variant := range resp.AssignedVariants {
		assignments[name] = variant
	}
	return assignments
}

// bucketVariant deterministically assigns a variant from the candidate list.
// The same (userID, experiment, variant count) always yields the same index,
// across runs and platforms.
func bucketVariant(userID, experiment string, variants []string) string {
	return variants[hash31(userID+"|"+experiment)%len(variants)]
}

// hash31 is a polynomial rolling hash (base 31) over the UTF-8 bytes of s,
// masked to a non-negative 31-bit integer.
func hash31(s string) int {
	h := 0
	for i := 0; i < len(s); i++ {
		h = (h*31 + int(s[i])) & 0x7fffffff
	}
	return h
}

// snakeCase lowercases with underscores before former uppercase letters,
// maps anything outside [a-z0-9_] to underscore, collapses runs and trims
// the ends.
func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteByte('_')
			b.WriteByte(byte(r - 'A' + 'a'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	var out strings.Builder
	out.Grow(b.Len())
	prevUnderscore := false
	for _, r := range b.String() {
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		out.WriteRune(r)
	}
	return strings.Trim(out.String(), "_")
}
