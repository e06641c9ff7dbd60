package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Warehouse    WarehouseConfig    `yaml:"warehouse"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	LLM          LLMConfig          `yaml:"llm"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int      `yaml:"port"         env:"SERVER_PORT"`
	Host        string   `yaml:"host"         env:"SERVER_HOST"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Supported warehouse drivers.
const (
	DriverPostgres  = "postgres"
	DriverRedshift  = "redshift"
	DriverSnowflake = "snowflake"
	DriverMySQL     = "mysql"
	DriverSQLite    = "sqlite"
)

// WarehouseConfig describes the database holding the audience tables.
// Host/Port/Database/User/Password keep the REDSHIFT_* variable names the
// deployment already uses; they apply to postgres and mysql as well.
type WarehouseConfig struct {
	Driver                string `yaml:"driver"                  env:"WAREHOUSE_DRIVER"`
	URL                   string `yaml:"url"                     env:"DATABASE_URL"`
	Host                  string `yaml:"host"                    env:"REDSHIFT_HOST"`
	Port                  int    `yaml:"port"                    env:"REDSHIFT_PORT"`
	Database              string `yaml:"database"                env:"REDSHIFT_DATABASE"`
	User                  string `yaml:"user"                    env:"REDSHIFT_USER"`
	Password              string `yaml:"password"                env:"REDSHIFT_PASSWORD"`
	SSLMode               string `yaml:"sslmode"                 env:"REDSHIFT_SSLMODE"`
	DefaultSchema         string `yaml:"default_schema"          env:"DEFAULT_SCHEMA"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds" env:"DB_CONNECT_TIMEOUT_SECONDS"`

	// Snowflake only
	Account            string `yaml:"account"   env:"SNOWFLAKE_ACCOUNT"`
	SnowflakeWarehouse string `yaml:"warehouse" env:"SNOWFLAKE_WAREHOUSE"`
	Role               string `yaml:"role"      env:"SNOWFLAKE_ROLE"`

	// SQLite only: main database file plus schema name → file to ATTACH.
	Path   string            `yaml:"path"   env:"SQLITE_PATH"`
	Attach map[string]string `yaml:"attach"`
}

// ConnectTimeout returns the connect timeout as a duration
func (c WarehouseConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// SegmentationConfig controls filter validation.
type SegmentationConfig struct {
	// CanonicalSchema is the schema whose columns every filter is checked against.
	CanonicalSchema  string `yaml:"canonical_schema"   env:"CANONICAL_SCHEMA"`
	StrictTableCheck *bool  `yaml:"strict_table_check" env:"STRICT_TABLE_CHECK"`
}

// StrictTables reports whether table names are checked against the canonical catalog.
func (c SegmentationConfig) StrictTables() bool {
	return c.StrictTableCheck == nil || *c.StrictTableCheck
}

// Supported LLM providers.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// LLMConfig holds language model settings for segment extraction
type LLMConfig struct {
	Provider              string   `yaml:"provider"                env:"LLM_PROVIDER"`
	Model                 string   `yaml:"model"                   env:"LLM_MODEL"`
	APIKey                string   `yaml:"api_key"                 env:"OPENAI_API_KEY"`
	BaseURL               string   `yaml:"base_url"                env:"OPENAI_BASE_URL"`
	GeminiAPIKey          string   `yaml:"gemini_api_key"          env:"GEMINI_API_KEY"`
	AWSRegion             string   `yaml:"aws_region"              env:"AWS_REGION"`
	MaxOutputTokens       int      `yaml:"max_output_tokens"       env:"LLM_MAX_OUTPUT_TOKENS"`
	Temperature           *float64 `yaml:"temperature"             env:"LLM_TEMPERATURE"`
	Attempts              int      `yaml:"attempts"                env:"LLM_ATTEMPTS"`
	BackoffMillis         int      `yaml:"backoff_millis"          env:"LLM_BACKOFF_MILLIS"`
	AttemptTimeoutSeconds int      `yaml:"attempt_timeout_seconds" env:"LLM_ATTEMPT_TIMEOUT_SECONDS"`
}

// Backoff returns the linear backoff step as a duration
func (c LLMConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMillis) * time.Millisecond
}

// AttemptTimeout returns the per-attempt timeout as a duration
func (c LLMConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

var defaultModels = map[string]string{
	ProviderOpenAI:  "gpt-5-mini",
	ProviderBedrock: "anthropic.claude-3-haiku-20240307-v1:0",
	ProviderGemini:  "gemini-2.5-flash",
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// EnvFile returns the env file to load: ENV_FILE when set, .env.test when
// ENV=TEST, .env otherwise.
func EnvFile() string {
	if f := os.Getenv("ENV_FILE"); f != "" {
		return f
	}
	if os.Getenv("ENV") == "TEST" {
		return ".env.test"
	}
	return ".env"
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads the env file chosen by EnvFile (if present) before reading env
// vars, so secrets can live in a file locally and in real env vars when
// deployed. A missing YAML file is not an error.
func LoadFromEnv(path string) (*Config, error) {
	// Load env file if it exists (no error if missing)
	_ = godotenv.Load(EnvFile())

	cfg := &Config{}
	if path != "" {
		loaded, err := load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	if cfg.Warehouse.Driver == "" {
		cfg.Warehouse.Driver = DriverRedshift
	}
	if cfg.Warehouse.Port == 0 {
		switch cfg.Warehouse.Driver {
		case DriverMySQL:
			cfg.Warehouse.Port = 3306
		case DriverPostgres:
			cfg.Warehouse.Port = 5432
		default:
			cfg.Warehouse.Port = 5439
		}
	}
	if cfg.Warehouse.SSLMode == "" {
		cfg.Warehouse.SSLMode = "require"
	}
	if cfg.Warehouse.DefaultSchema == "" {
		cfg.Warehouse.DefaultSchema = "public"
	}
	if cfg.Warehouse.ConnectTimeoutSeconds == 0 {
		cfg.Warehouse.ConnectTimeoutSeconds = 5
	}

	if cfg.Segmentation.CanonicalSchema == "" {
		cfg.Segmentation.CanonicalSchema = "residents"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.AWSRegion == "" {
		cfg.LLM.AWSRegion = "us-east-1"
	}
	if cfg.LLM.MaxOutputTokens == 0 {
		cfg.LLM.MaxOutputTokens = 300
	}
	if cfg.LLM.Temperature == nil {
		t := 0.2
		cfg.LLM.Temperature = &t
	}
	if cfg.LLM.Attempts == 0 {
		cfg.LLM.Attempts = 3
	}
	if cfg.LLM.BackoffMillis == 0 {
		cfg.LLM.BackoffMillis = 500
	}
	if cfg.LLM.AttemptTimeoutSeconds == 0 {
		cfg.LLM.AttemptTimeoutSeconds = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate rejects configurations the server cannot start with.
func (cfg *Config) Validate() error {
	switch cfg.Warehouse.Driver {
	case DriverPostgres, DriverRedshift, DriverSnowflake, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported warehouse driver %q", cfg.Warehouse.Driver)
	}
	if _, ok := defaultModels[cfg.LLM.Provider]; !ok {
		return fmt.Errorf("config: unsupported llm provider %q", cfg.LLM.Provider)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", cfg.Server.Port)
	}
	if cfg.LLM.Attempts < 1 {
		return fmt.Errorf("config: llm attempts must be at least 1")
	}
	return nil
}
