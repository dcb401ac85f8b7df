package mgm

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

const (
	eventsPath      = "/v1/events"
	experimentsPath = "/v1/experiments"
)

// Client is the SDK facade. Construct one per isolated pipeline with New,
// then call Configure before tracking. All public methods are safe for
// concurrent use, though hosts typically call from a single logical task.
type Client struct {
	mu         sync.RWMutex
	config     Config
	configured bool

	logger    adapters.LoggerAdapter
	events    adapters.EventStore
	state     adapters.StateStore
	network   adapters.NetworkAdapter
	lifecycle adapters.LifecycleAdapter
	device    adapters.DeviceContextProvider

	// storage is the badger handle owned by the client when the default
	// stores are used; nil when both stores were injected.
	storage *adapters.BadgerStorage

	identity    *identityManager
	superProps  *superProperties
	debounce    *identifyDebouncer
	experiments *experimentEngine
	dispatcher  *dispatcher

	headers map[string]string
}

// New validates the configuration, wires default adapters for any left nil,
// and returns an unconfigured client. Call Configure to start the pipeline.
func New(config Config) (*Client, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	c := &Client{config: cfg}

	if cfg.Adapters.Logger != nil {
		c.logger = cfg.Adapters.Logger
	} else {
		level := adapters.LogLevelWarn
		if cfg.EnableDebugLogging {
			level = adapters.LogLevelDebug
		}
		c.logger = adapters.NewLogrusLoggerAdapter(level)
	}

	c.events = cfg.Adapters.EventStore
	c.state = cfg.Adapters.StateStore
	if c.events == nil || c.state == nil {
		storage, err := adapters.OpenBadgerStorage(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		c.storage = storage
		if c.events == nil {
			c.events = storage.EventStore(cfg.MaxStoredEvents)
		}
		if c.state == nil {
			c.state = storage.StateStore()
		}
	}

	if cfg.Adapters.Network != nil {
		c.network = cfg.Adapters.Network
	} else {
		c.network = adapters.NewNetHTTPAdapter()
	}
	if cfg.Adapters.Lifecycle != nil {
		c.lifecycle = cfg.Adapters.Lifecycle
	} else {
		c.lifecycle = adapters.NewNoOpLifecycleAdapter()
	}
	if cfg.Adapters.Device != nil {
		c.device = cfg.Adapters.Device
	} else {
		c.device = adapters.NewHostDeviceContext()
	}

	device := c.device.DeviceContext()
	c.headers = map[string]string{
		cfg.APIKeyHeader: cfg.APIKey,
		"X-SDK-Name":     sdkName,
		"X-SDK-Version":  sdkVersion,
		"X-Platform":     device.Platform,
	}
	if device.OSVersion != "" {
		c.headers["X-Platform-Version"] = device.OSVersion
	}

	c.identity = newIdentityManager(c.state, c.logger)
	c.superProps = newSuperProperties(c.state)
	c.debounce = newIdentifyDebouncer(c.state, c.logger)
	c.experiments = newExperimentEngine(
		c.state, c.network, c.superProps, c.logger,
		cfg.BaseURL+experimentsPath, c.headers,
	)
	return c, nil
}

// Configure (re)initializes the pipeline: restores identity, session and
// super properties, rotates the session, starts the flush scheduler, checks
// for an app version change, and kicks off experiment loading. Safe to call
// again; reconfiguration tears down the previous scheduler and lifecycle
// subscription and issues a fresh session id.
func (c *Client) Configure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.configured {
		c.lifecycle.Unregister(c)
		c.dispatcher.stopTimer()
	}

	if err := c.identity.restore(); err != nil {
		c.logger.Error("failed to restore identity: %v", err)
	}
	if err := c.superProps.restore(); err != nil {
		c.logger.Error("failed to restore super properties: %v", err)
	}
	if _, err := c.identity.rotateSession(); err != nil {
		c.logger.Error("failed to start session: %v", err)
	}

	c.dispatcher = newDispatcher(
		dispatcherConfig{
			Endpoint:      c.config.BaseURL + eventsPath,
			FlushInterval: c.config.FlushInterval,
			MaxBatchSize:  c.config.MaxBatchSize,
		},
		c.events, c.network, c.logger, c.headers, c.batchContext,
	)
	c.dispatcher.startTimer()
	c.configured = true

	c.checkAppVersionLocked()
	if !c.config.DisableLifecycleEvents {
		c.trackInternal(EventAppOpened, nil)
	}
	c.lifecycle.Register(c)

	userID := c.identity.effectiveUserID()
	c.experiments.reset(userID)
	go c.experiments.load(userID)

	c.logger.Info("client configured for environment %s", c.config.Environment)
	return nil
}

// Track validates, merges super properties, stamps identity/session/device
// context, and enqueues the event. It never performs network I/O; delivery
// is the scheduler's job. Validation errors are the only errors returned.
func (c *Client) Track(name string, properties map[string]any) error {
	if err := ValidateEventName(name); err != nil {
		return err
	}
	if err := ValidateProperties(properties); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return ErrNotConfigured
	}
	c.trackInternal(name, properties)
	return nil
}

// trackInternal builds and enqueues an event. Callers hold c.mu.
func (c *Client) trackInternal(name string, properties map[string]any) {
	merged := c.superProps.getAll()
	for k, v := range properties {
		merged[k] = v
	}
	if len(merged) == 0 {
		merged = nil
	}

	device := c.device.DeviceContext()
	event := adapters.Event{
		Name:               name,
		ClientEventID:      uuid.NewString(),
		Timestamp:          adapters.Now(),
		UserID:             c.identity.effectiveUserID(),
		SessionID:          c.identity.currentSessionID(),
		Platform:           device.Platform,
		OSVersion:          device.OSVersion,
		AppVersion:         c.config.AppVersion,
		AppBuildNumber:     c.config.AppBuildNumber,
		Environment:        c.config.Environment,
		DeviceManufacturer: device.Manufacturer,
		Locale:             device.Locale,
		Timezone:           device.Timezone,
		Properties:         merged,
	}

	if err := c.dispatcher.enqueue(event); err != nil {
		// Storage failures degrade to a lost event; they never cross the
		// public API boundary.
		c.logger.Error("failed to enqueue event %s: %v", name, err)
	}
}

// Identify sets the user id. A user change invalidates cached experiment
// assignments and refetches for the new user. When the profile carries an
// email or name, a debounced $identify event is emitted.
func (c *Client) Identify(userID string, profile *UserProfile) error {
	if userID == "" {
		return &ValidationError{Field: "user id", Reason: "must not be empty"}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return ErrNotConfigured
	}

	previous := c.identity.effectiveUserID()
	if err := c.identity.setUser(userID); err != nil {
		c.logger.Error("failed to persist user id: %v", err)
	}
	if userID != previous {
		c.experiments.invalidate(userID)
		go c.experiments.load(userID)
	}

	if !profile.isEmpty() {
		now := time.Now()
		if c.debounce.shouldSend(userID, profile, now) {
			props := make(map[string]any, 2)
			if profile.Email != nil {
				props["email"] = *profile.Email
			}
			if profile.Name != nil {
				props["name"] = *profile.Name
			}
			c.trackInternal(EventIdentify, props)
			c.debounce.markSent(userID, profile, now)
		}
	}
	return nil
}

// ResetIdentity clears the user id, clears identify debounce state, and
// rotates the session. The anonymous id is untouched.
func (c *Client) ResetIdentity() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return ErrNotConfigured
	}

	if err := c.identity.clearUser(); err != nil {
		c.logger.Error("failed to clear user id: %v", err)
	}
	c.debounce.reset()
	if _, err := c.identity.rotateSession(); err != nil {
		c.logger.Error("failed to rotate session: %v", err)
	}

	userID := c.identity.effectiveUserID()
	c.experiments.invalidate(userID)
	go c.experiments.load(userID)
	return nil
}

// StartNewSession rotates the session id only; identity is preserved.
func (c *Client) StartNewSession() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return ErrNotConfigured
	}
	if _, err := c.identity.rotateSession(); err != nil {
		c.logger.Error("failed to rotate session: %v", err)
	}
	return nil
}

// Flush triggers an immediate delivery cycle. A flush already in progress
// coalesces this call into a no-op.
func (c *Client) Flush() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return ErrNotConfigured
	}
	c.dispatcher.Flush()
	return nil
}

// GetVariant resolves the assigned variant for an experiment, empty when
// the experiment is unknown. Before assignments load it falls back to
// deterministic bucketing so the call never blocks.
func (c *Client) GetVariant(name string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return "", ErrNotConfigured
	}
	return c.experiments.GetVariant(name), nil
}

// ExperimentsReady returns a channel closed once experiment assignments
// have loaded, successfully or not.
func (c *Client) ExperimentsReady() <-chan struct{} {
	return c.experiments.Ready()
}

// SetSuperProperty sets a property merged into every future event at lower
// precedence than caller-supplied properties.
func (c *Client) SetSuperProperty(key string, value any) error {
	if key == "" {
		return &ValidationError{Field: "super property key", Reason: "must not be empty"}
	}
	if err := validateValue(value, 1); err != nil {
		return err
	}
	if err := c.superProps.set(key, value); err != nil {
		c.logger.Error("failed to persist super property %s: %v", key, err)
	}
	return nil
}

// SetSuperProperties merges a map of super properties.
func (c *Client) SetSuperProperties(values map[string]any) error {
	if err := ValidateProperties(values); err != nil {
		return err
	}
	if err := c.superProps.setAll(values); err != nil {
		c.logger.Error("failed to persist super properties: %v", err)
	}
	return nil
}

// RemoveSuperProperty removes a single super property.
func (c *Client) RemoveSuperProperty(key string) {
	if err := c.superProps.remove(key); err != nil {
		c.logger.Error("failed to remove super property %s: %v", key, err)
	}
}

// ClearSuperProperties removes all super properties.
func (c *Client) ClearSuperProperties() {
	if err := c.superProps.clear(); err != nil {
		c.logger.Error("failed to clear super properties: %v", err)
	}
}

// PendingEvents returns the number of events waiting for delivery.
func (c *Client) PendingEvents() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return 0, ErrNotConfigured
	}
	return c.events.Count()
}

// SuperProperties returns a copy of the current super properties.
func (c *Client) SuperProperties() map[string]any {
	return c.superProps.getAll()
}

// OnForeground implements adapters.LifecycleObserver. It restarts the flush
// scheduler and emits $app_foregrounded.
func (c *Client) OnForeground() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return
	}
	if !c.config.DisableLifecycleEvents {
		c.trackInternal(EventAppForegrounded, nil)
	}
	c.dispatcher.startTimer()
}

// OnBackground implements adapters.LifecycleObserver. It emits
// $app_backgrounded, stops the scheduler, and fires a best-effort flush
// that does not block the host's suspension.
func (c *Client) OnBackground() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.configured {
		return
	}
	if !c.config.DisableLifecycleEvents {
		c.trackInternal(EventAppBackgrounded, nil)
	}
	c.dispatcher.stopTimer()
	go c.dispatcher.Flush()
}

// Shutdown tears the pipeline down: unsubscribes lifecycle, stops the
// scheduler with a final best-effort flush, and closes the owned store.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return nil
	}

	c.lifecycle.Unregister(c)
	c.dispatcher.stop()
	c.configured = false

	if c.storage != nil {
		return c.storage.Close()
	}
	return nil
}

// checkAppVersionLocked compares the configured app version with the last
// persisted one and emits $app_installed or $app_updated. Callers hold c.mu.
func (c *Client) checkAppVersionLocked() {
	if c.config.AppVersion == "" {
		return
	}
	last, ok, err := c.state.Get(keyLastAppVersion)
	if err != nil {
		c.logger.Warn("failed to read last app version: %v", err)
		return
	}
	switch {
	case !ok:
		c.trackInternal(EventAppInstalled, nil)
	case last != c.config.AppVersion:
		c.trackInternal(EventAppUpdated, map[string]any{
			"previous_version": last,
			"current_version":  c.config.AppVersion,
		})
	}
	if err := c.state.Set(keyLastAppVersion, c.config.AppVersion); err != nil {
		c.logger.Warn("failed to persist app version: %v", err)
	}
}

// batchContext snapshots the delivery context at send time, distinct from
// the per-event values captured at track time.
func (c *Client) batchContext() adapters.BatchContext {
	device := c.device.DeviceContext()
	return adapters.BatchContext{
		Platform:           device.Platform,
		OSVersion:          device.OSVersion,
		AppVersion:         c.config.AppVersion,
		AppBuildNumber:     c.config.AppBuildNumber,
		UserID:             c.identity.effectiveUserID(),
		SessionID:          c.identity.currentSessionID(),
		Environment:        c.config.Environment,
		DeviceManufacturer: device.Manufacturer,
		Locale:             device.Locale,
		Timezone:           device.Timezone,
	}
}
