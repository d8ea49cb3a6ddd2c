// Package config loads the YAML configuration shared by the gateway and the ingest CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/semsearch/internal/domain/entity"
	"github.com/kailas-cloud/semsearch/internal/repository/source"
)

// Config holds the semsearch configuration.
type Config struct {
	HTTP      HTTPConfig              `yaml:"http"`
	Database  DatabaseConfig          `yaml:"database"`
	Storage   StorageConfig           `yaml:"storage"`
	Index     IndexConfig             `yaml:"index"`
	Embedding EmbeddingConfig         `yaml:"embedding"`
	Search    SearchConfig            `yaml:"search"`
	Fanout    FanoutConfig            `yaml:"fanout"`
	Entities  map[string]EntityConfig `yaml:"entities"`
	Ingest    IngestConfig            `yaml:"ingest"`
	Logging   LoggingConfig           `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds keyspace settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig holds vector index settings for new collections.
// Algorithm is HNSW or FLAT; the hnsw_* knobs are ignored for FLAT.
type IndexConfig struct {
	Algorithm       string `yaml:"algorithm"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// RetryConfig bounds a retry loop.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Provider            string      `yaml:"provider"` // openai, ollama, langchain-openai, hashing
	BaseURL             string      `yaml:"base_url"`
	APIKey              string      `yaml:"api_key"`
	Model               string      `yaml:"model"`
	Dimensions          int         `yaml:"dimensions"` // 0 = take the probed dimension
	MaxInputChars       int         `yaml:"max_input_chars"`
	MaxBatchSize        int         `yaml:"max_batch_size"`
	TimeoutSec          int         `yaml:"timeout_sec"`
	QueryInstruction    string      `yaml:"query_instruction"`
	DocumentInstruction string      `yaml:"document_instruction"`
	ProbeText           string      `yaml:"probe_text"`
	Cache               CacheConfig `yaml:"cache"`
	Retry               RetryConfig `yaml:"retry"`
}

// SearchConfig holds single-collection search settings.
type SearchConfig struct {
	DefaultLimit   int         `yaml:"default_limit"`
	MaxLimit       int         `yaml:"max_limit"`
	MaxQueryLength int         `yaml:"max_query_length"`
	DefaultRadiusM float64     `yaml:"default_radius_m"`
	Retry          RetryConfig `yaml:"retry"`
}

// FanoutConfig holds multi-entity search settings.
type FanoutConfig struct {
	Workers   int `yaml:"workers"`
	TimeoutMs int `yaml:"timeout_ms"`
}

// EntityConfig overrides the collection of one entity type.
type EntityConfig struct {
	Collection  string `yaml:"collection"`
	VectorField string `yaml:"vector_field"`
}

// LocationConfig is a fallback coordinate.
type LocationConfig struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// SourceConfig describes the relational database ingestion reads from.
type SourceConfig struct {
	Driver         string                `yaml:"driver"` // mysql, postgres, sqlite
	DSN            string                `yaml:"dsn"`
	Tables         source.Tables         `yaml:"tables"`
	ServiceColumns source.DisplayColumns `yaml:"service_columns"`
	ShopColumns    source.DisplayColumns `yaml:"shop_columns"`
	Relations      source.Relations      `yaml:"relations"`
}

// Config converts the section into the source package config.
func (s SourceConfig) Config() source.Config {
	return source.Config{
		Driver:         s.Driver,
		DSN:            s.DSN,
		Tables:         s.Tables,
		ServiceColumns: s.ServiceColumns,
		ShopColumns:    s.ShopColumns,
		Relations:      s.Relations,
	}
}

// IngestConfig holds batch ingestion settings.
type IngestConfig struct {
	Source          SourceConfig   `yaml:"source"`
	BatchSize       int            `yaml:"batch_size"`
	RowsPerSecond   float64        `yaml:"rows_per_second"` // 0 = unlimited
	LockTTLSec      int            `yaml:"lock_ttl_sec"`
	DefaultLocation LocationConfig `yaml:"default_location"`
	TextMaxChars    int            `yaml:"text_max_chars"`
	MetricsPort     int            `yaml:"metrics_port"` // 0 = no listener
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands environment variables, decodes, defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "semsearch:"
	}
	c.Index.Algorithm = strings.ToUpper(c.Index.Algorithm)
	if c.Index.Algorithm == "" {
		c.Index.Algorithm = "HNSW"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}

	c.applyEmbeddingDefaults()

	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 50
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = 4096
	}
	if c.Search.DefaultRadiusM <= 0 {
		c.Search.DefaultRadiusM = 5000
	}
	if c.Search.Retry.MaxAttempts <= 0 {
		c.Search.Retry = RetryConfig{MaxAttempts: 2, BaseDelayMs: 50, MaxDelayMs: 200}
	}

	if c.Fanout.Workers <= 0 {
		c.Fanout.Workers = 8
	}
	if c.Fanout.TimeoutMs <= 0 {
		c.Fanout.TimeoutMs = 5000
	}

	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 50
	}
	if c.Ingest.LockTTLSec <= 0 {
		c.Ingest.LockTTLSec = 1800
	}
	if c.Ingest.DefaultLocation == (LocationConfig{}) {
		c.Ingest.DefaultLocation = LocationConfig{Lat: 31.0345728, Lon: 30.4676864}
	}
	if c.Ingest.TextMaxChars <= 0 {
		c.Ingest.TextMaxChars = 500
	}
	if c.Ingest.Source.Driver == "" {
		c.Ingest.Source.Driver = "mysql"
	}
	if c.Ingest.MetricsPort < 0 {
		c.Ingest.MetricsPort = 0
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.MaxInputChars <= 0 {
		e.MaxInputChars = 2048
	}
	if e.MaxBatchSize <= 0 {
		e.MaxBatchSize = 256
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 30
	}
	if e.ProbeText == "" {
		e.ProbeText = "dimension probe"
	}
	if e.Retry.MaxAttempts <= 0 {
		e.Retry = RetryConfig{MaxAttempts: 3, BaseDelayMs: 200, MaxDelayMs: 2000}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return errors.New("database.addrs is required")
	}

	switch c.Embedding.Provider {
	case "openai", "ollama", "langchain-openai":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider %q", c.Embedding.Provider)
		}
	case "hashing":
	default:
		return fmt.Errorf(
			"embedding.provider must be one of openai, ollama, langchain-openai, hashing, got %q",
			c.Embedding.Provider,
		)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}

	if a := c.Index.Algorithm; a != "HNSW" && a != "FLAT" {
		return fmt.Errorf("index.algorithm must be HNSW or FLAT, got %q", a)
	}

	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) must not exceed search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if _, err := source.ParseDialect(c.Ingest.Source.Driver); err != nil {
		return fmt.Errorf("ingest.source.driver: %w", err)
	}
	if c.Ingest.RowsPerSecond < 0 {
		return fmt.Errorf("ingest.rows_per_second must not be negative, got %g", c.Ingest.RowsPerSecond)
	}

	for name := range c.Entities {
		if _, err := entity.Parse(name); err != nil {
			return fmt.Errorf("entities.%s: unknown entity type", name)
		}
	}
	return nil
}

// EntityOverrides converts the entities section for entity.NewRegistry.
func (c *Config) EntityOverrides() map[string]entity.Override {
	out := make(map[string]entity.Override, len(c.Entities))
	for name, e := range c.Entities {
		out[name] = entity.Override{Collection: e.Collection, VectorField: e.VectorField}
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
