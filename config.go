package mgm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

const (
	defaultBaseURL         = "https://api.mostlygoodmetrics.com"
	defaultEnvironment     = "production"
	defaultMaxBatchSize    = 100
	defaultFlushInterval   = 30 * time.Second
	defaultMaxStoredEvents = 10000
	defaultStoragePath     = "mgm_data"
	defaultAPIKeyHeader    = "X-API-Key"
)

// Config is the orchestrator configuration surface.
type Config struct {
	// APIKey authenticates against the ingestion endpoint. Required.
	APIKey string

	// BaseURL of the remote endpoint; events go to {BaseURL}/v1/events and
	// experiments come from {BaseURL}/v1/experiments.
	BaseURL string

	// APIKeyHeader overrides the header name carrying the API key.
	APIKeyHeader string

	Environment    string
	AppVersion     string
	AppBuildNumber string

	// MaxBatchSize bounds one delivery attempt, 1-1000.
	MaxBatchSize int

	// FlushInterval is the periodic flush cadence, at least one second.
	FlushInterval time.Duration

	// MaxStoredEvents bounds the pending queue; the oldest events are
	// evicted on overflow. At least 100.
	MaxStoredEvents int

	// StoragePath is where the default durable store lives when no stores
	// are injected.
	StoragePath string

	EnableDebugLogging bool

	// DisableLifecycleEvents turns off $app_opened / $app_foregrounded /
	// $app_backgrounded emission. Lifecycle tracking is on by default.
	DisableLifecycleEvents bool

	// Adapters are the injectable collaborators; any left nil gets the
	// default implementation.
	Adapters struct {
		EventStore adapters.EventStore
		StateStore adapters.StateStore
		Network    adapters.NetworkAdapter
		Logger     adapters.LoggerAdapter
		Lifecycle  adapters.LifecycleAdapter
		Device     adapters.DeviceContextProvider
	}
}

// withDefaults fills unset fields and validates ranges.
func (c Config) withDefaults() (Config, error) {
	if c.APIKey == "" {
		return c, errors.New("mgm: APIKey is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.APIKeyHeader == "" {
		c.APIKeyHeader = defaultAPIKeyHeader
	}
	if c.Environment == "" {
		c.Environment = defaultEnvironment
	}

	switch {
	case c.MaxBatchSize == 0:
		c.MaxBatchSize = defaultMaxBatchSize
	case c.MaxBatchSize < 1 || c.MaxBatchSize > 1000:
		return c, fmt.Errorf("mgm: MaxBatchSize must be between 1 and 1000, got %d", c.MaxBatchSize)
	}

	switch {
	case c.FlushInterval == 0:
		c.FlushInterval = defaultFlushInterval
	case c.FlushInterval < time.Second:
		return c, fmt.Errorf("mgm: FlushInterval must be at least 1s, got %v", c.FlushInterval)
	}

	switch {
	case c.MaxStoredEvents == 0:
		c.MaxStoredEvents = defaultMaxStoredEvents
	case c.MaxStoredEvents < 100:
		return c, fmt.Errorf("mgm: MaxStoredEvents must be at least 100, got %d", c.MaxStoredEvents)
	}

	if c.StoragePath == "" {
		c.StoragePath = defaultStoragePath
	}
	return c, nil
}

// ConfigFromEnv builds a Config from MGM_* environment variables. A .env
// file in the working directory is honored when present.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	return Config{
		APIKey:                 os.Getenv("MGM_API_KEY"),
		BaseURL:                os.Getenv("MGM_BASE_URL"),
		Environment:            os.Getenv("MGM_ENVIRONMENT"),
		AppVersion:             os.Getenv("MGM_APP_VERSION"),
		AppBuildNumber:         os.Getenv("MGM_APP_BUILD_NUMBER"),
		MaxBatchSize:           getEnvAsInt("MGM_MAX_BATCH_SIZE", 0),
		FlushInterval:          time.Duration(getEnvAsInt("MGM_FLUSH_INTERVAL_SECONDS", 0)) * time.Second,
		MaxStoredEvents:        getEnvAsInt("MGM_MAX_STORED_EVENTS", 0),
		StoragePath:            os.Getenv("MGM_STORAGE_PATH"),
		EnableDebugLogging:     getEnvAsBool("MGM_DEBUG_LOGGING", false),
		DisableLifecycleEvents: getEnvAsBool("MGM_DISABLE_LIFECYCLE_EVENTS", false),
	}
}

// fileConfig is the on-disk configuration shape.
type fileConfig struct {
	APIKey                 string `yaml:"api_key" json:"api_key"`
	BaseURL                string `yaml:"base_url" json:"base_url"`
	Environment            string `yaml:"environment" json:"environment"`
	AppVersion             string `yaml:"app_version" json:"app_version"`
	AppBuildNumber         string `yaml:"app_build_number" json:"app_build_number"`
	MaxBatchSize           int    `yaml:"max_batch_size" json:"max_batch_size"`
	FlushIntervalSeconds   int    `yaml:"flush_interval_seconds" json:"flush_interval_seconds"`
	MaxStoredEvents        int    `yaml:"max_stored_events" json:"max_stored_events"`
	StoragePath            string `yaml:"storage_path" json:"storage_path"`
	EnableDebugLogging     bool   `yaml:"enable_debug_logging" json:"enable_debug_logging"`
	DisableLifecycleEvents bool   `yaml:"disable_lifecycle_events" json:"disable_lifecycle_events"`
}

// ConfigFromFile loads configuration from a file, auto-detecting format by
// extension. Supported extensions: .yaml, .yml, .json
func ConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse json config: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}

	return Config{
		APIKey:                 fc.APIKey,
		BaseURL:                fc.BaseURL,
		Environment:            fc.Environment,
		AppVersion:             fc.AppVersion,
		AppBuildNumber:         fc.AppBuildNumber,
		MaxBatchSize:           fc.MaxBatchSize,
		FlushInterval:          time.Duration(fc.FlushIntervalSeconds) * time.Second,
		MaxStoredEvents:        fc.MaxStoredEvents,
		StoragePath:            fc.StoragePath,
		EnableDebugLogging:     fc.EnableDebugLogging,
		DisableLifecycleEvents: fc.DisableLifecycleEvents,
	}, nil
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
