package mgm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg, err := Config{APIKey: "test-key"}.withDefaults()
	require.NoError(t, err)

	assert.Equal(t, defaultBaseURL, cfg.BaseURL)
	assert.Equal(t, defaultAPIKeyHeader, cfg.APIKeyHeader)
	assert.Equal(t, defaultEnvironment, cfg.Environment)
	assert.Equal(t, defaultMaxBatchSize, cfg.MaxBatchSize)
	assert.Equal(t, defaultFlushInterval, cfg.FlushInterval)
	assert.Equal(t, defaultMaxStoredEvents, cfg.MaxStoredEvents)
	assert.Equal(t, defaultStoragePath, cfg.StoragePath)
	assert.False(t, cfg.DisableLifecycleEvents)
}

func TestConfig_RequiresAPIKey(t *testing.T) {
	_, err := Config{}.withDefaults()
	assert.Error(t, err)
}

func TestConfig_TrimsTrailingSlash(t *testing.T) {
	cfg, err := Config{APIKey: "test-key", BaseURL: "http://test.local/"}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, "http://test.local", cfg.BaseURL)
}

func TestConfig_RangeValidation(t *testing.T) {
	cases := map[string]Config{
		"batch size too small":    {APIKey: "k", MaxBatchSize: -1},
		"batch size too large":    {APIKey: "k", MaxBatchSize: 1001},
		"flush interval too fast": {APIKey: "k", FlushInterval: 100 * time.Millisecond},
		"stored events too few":   {APIKey: "k", MaxStoredEvents: 50},
	}
	for name, config := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.withDefaults()
			assert.Error(t, err)
		})
	}

	valid := Config{
		APIKey:          "k",
		MaxBatchSize:    1000,
		FlushInterval:   time.Second,
		MaxStoredEvents: 100,
	}
	_, err := valid.withDefaults()
	assert.NoError(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MGM_API_KEY", "env-key")
	t.Setenv("MGM_BASE_URL", "http://env.local")
	t.Setenv("MGM_MAX_BATCH_SIZE", "50")
	t.Setenv("MGM_FLUSH_INTERVAL_SECONDS", "10")
	t.Setenv("MGM_DISABLE_LIFECYCLE_EVENTS", "true")

	cfg := ConfigFromEnv()
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "http://env.local", cfg.BaseURL)
	assert.Equal(t, 50, cfg.MaxBatchSize)
	assert.Equal(t, 10*time.Second, cfg.FlushInterval)
	assert.True(t, cfg.DisableLifecycleEvents)
}

func TestConfigFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mgm.yaml")
	content := `
api_key: file-key
base_url: http://file.local
environment: staging
max_batch_size: 25
flush_interval_seconds: 15
enable_debug_logging: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := ConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "http://file.local", cfg.BaseURL)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 25, cfg.MaxBatchSize)
	assert.Equal(t, 15*time.Second, cfg.FlushInterval)
	assert.True(t, cfg.EnableDebugLogging)
}

func TestConfigFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mgm.json")
	content := `{"api_key":"file-key","max_stored_events":500,"storage_path":"/tmp/mgm"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := ConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, 500, cfg.MaxStoredEvents)
	assert.Equal(t, "/tmp/mgm", cfg.StoragePath)
}

func TestConfigFromFile_Errors(t *testing.T) {
	_, err := ConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "mgm.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_key = 'x'"), 0o600))
	_, err = ConfigFromFile(path)
	assert.Error(t, err)
}
