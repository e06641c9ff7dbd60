package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"
  cors_origins: ["https://audience.example.com"]

warehouse:
  driver: postgres
  host: db.internal
  database: analytics
  user: svc
  password: secret
  sslmode: disable
  default_schema: residents

segmentation:
  canonical_schema: people
  strict_table_check: false

llm:
  provider: bedrock
  temperature: 0.5
  attempts: 5
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Test server config
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, []string{"https://audience.example.com"}, cfg.Server.CORSOrigins)

	// Test warehouse config
	assert.Equal(t, DriverPostgres, cfg.Warehouse.Driver)
	assert.Equal(t, 5432, cfg.Warehouse.Port)
	assert.Equal(t, "disable", cfg.Warehouse.SSLMode)
	assert.Equal(t, "residents", cfg.Warehouse.DefaultSchema)
	assert.Equal(t, 5*time.Second, cfg.Warehouse.ConnectTimeout())

	// Test segmentation config
	assert.Equal(t, "people", cfg.Segmentation.CanonicalSchema)
	assert.False(t, cfg.Segmentation.StrictTables())

	// Test llm config
	assert.Equal(t, ProviderBedrock, cfg.LLM.Provider)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", cfg.LLM.Model)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, 0.5, *cfg.LLM.Temperature)
	assert.Equal(t, 5, cfg.LLM.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.LLM.Backoff())
	assert.Equal(t, 10*time.Second, cfg.LLM.AttemptTimeout())
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server: {}\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, DriverRedshift, cfg.Warehouse.Driver)
	assert.Equal(t, 5439, cfg.Warehouse.Port)
	assert.Equal(t, "require", cfg.Warehouse.SSLMode)
	assert.Equal(t, "public", cfg.Warehouse.DefaultSchema)
	assert.Equal(t, "residents", cfg.Segmentation.CanonicalSchema)
	assert.True(t, cfg.Segmentation.StrictTables())
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-5-mini", cfg.LLM.Model)
	assert.Equal(t, 300, cfg.LLM.MaxOutputTokens)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, 0.2, *cfg.LLM.Temperature)
	assert.Equal(t, 3, cfg.LLM.Attempts)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte("warehouse:\n  host: from-yaml\n  user: yaml-user\n"), 0644)
	require.NoError(t, err)

	t.Setenv("ENV_FILE", filepath.Join(tmpDir, "missing.env"))
	t.Setenv("REDSHIFT_HOST", "from-env")
	t.Setenv("REDSHIFT_PORT", "5440")
	t.Setenv("DEFAULT_SCHEMA", "residents")
	t.Setenv("WAREHOUSE_DRIVER", "mysql")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STRICT_TABLE_CHECK", "false")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Warehouse.Host)
	assert.Equal(t, "yaml-user", cfg.Warehouse.User)
	assert.Equal(t, 5440, cfg.Warehouse.Port)
	assert.Equal(t, DriverMySQL, cfg.Warehouse.Driver)
	assert.Equal(t, "residents", cfg.Warehouse.DefaultSchema)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.False(t, cfg.Segmentation.StrictTables())
}

func TestLoadFromEnv_MissingYAMLIsFine(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(tmpDir, "missing.env"))

	cfg, err := LoadFromEnv(filepath.Join(tmpDir, "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ZeroTemperatureIsKept(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  temperature: 0\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, 0.0, *cfg.LLM.Temperature)

	t.Setenv("ENV_FILE", filepath.Join(tmpDir, "missing.env"))
	t.Setenv("LLM_TEMPERATURE", "0")
	cfg, err = LoadFromEnv(filepath.Join(tmpDir, "nope.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.Equal(t, 0.0, *cfg.LLM.Temperature)
}

func TestLoadFromEnv_ReadsEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, "test.env")
	err := os.WriteFile(envPath, []byte("REDSHIFT_DATABASE=analytics_test\n"), 0644)
	require.NoError(t, err)

	t.Setenv("ENV_FILE", envPath)
	// Register restore, then clear so the env file is the only source.
	t.Setenv("REDSHIFT_DATABASE", "")
	require.NoError(t, os.Unsetenv("REDSHIFT_DATABASE"))

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "analytics_test", cfg.Warehouse.Database)
}

func TestEnvFile(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("ENV", "")
	assert.Equal(t, ".env", EnvFile())

	t.Setenv("ENV", "TEST")
	assert.Equal(t, ".env.test", EnvFile())

	t.Setenv("ENV_FILE", "custom.env")
	assert.Equal(t, "custom.env", EnvFile())
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	require.NoError(t, cfg.Validate())

	cfg.Warehouse.Driver = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "unsupported warehouse driver")

	cfg.Warehouse.Driver = DriverSQLite
	cfg.LLM.Provider = "llama"
	assert.ErrorContains(t, cfg.Validate(), "unsupported llm provider")
}
