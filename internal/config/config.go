package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Storage StorageConfig `yaml:"storage"`
	Minio   MinioConfig   `yaml:"minio"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"` // 0 disables rate limiting
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LLMConfig struct {
	Provider    string       `yaml:"provider"`
	MaxTokens   int          `yaml:"max_tokens"`
	Temperature float64      `yaml:"temperature"`
	OpenAI      OpenAIConfig `yaml:"openai"`
	Local       LocalConfig  `yaml:"local"`
}

type OpenAIConfig struct {
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	JSONMode bool          `yaml:"json_mode"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LocalConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig selects the analysis store. Path is used by sqlite,
// DSN by mysql and postgres.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// MinioConfig enables the audit archive when Endpoint is set.
type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"useSSL"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Load reads the YAML file at path (a missing file is not an error), fills
// defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrapf(err, "read %s", path)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 10 << 20
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 10
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 800
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if c.LLM.OpenAI.Timeout == 0 {
		c.LLM.OpenAI.Timeout = 120 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/st22.db"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "dump-analyses"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// applyEnvOverrides lets every scalar option be set from the environment.
func (c *Config) applyEnvOverrides() error {
	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.LLM.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.Local.URL, "LOCAL_LLM_URL")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.Path, "STORAGE_DB")
	setString(&c.Storage.DSN, "STORAGE_DSN")
	setString(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Minio.BucketName, "MINIO_BUCKET")
	setString(&c.Minio.Region, "MINIO_REGION")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	for _, err := range []error{
		setInt(&c.Server.Port, "PORT"),
		setInt64(&c.Server.MaxBodyBytes, "MAX_BODY_BYTES"),
		setFloat(&c.Server.RateLimitRPS, "RATE_LIMIT_RPS"),
		setInt(&c.Server.RateLimitBurst, "RATE_LIMIT_BURST"),
		setInt(&c.LLM.MaxTokens, "LLM_MAX_TOKENS"),
		setFloat(&c.LLM.Temperature, "LLM_TEMPERATURE"),
		setBool(&c.LLM.OpenAI.JSONMode, "OPENAI_JSON_MODE"),
		setDuration(&c.LLM.OpenAI.Timeout, "OPENAI_TIMEOUT"),
		setBool(&c.Minio.UseSSL, "MINIO_USE_SSL"),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects values no component can work with. Provider specific
// checks (credentials, URLs) happen when the provider is built.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("storage.path is required for sqlite")
		}
	case DriverMySQL, DriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.Newf("storage.dsn is required for %s", c.Storage.Driver)
		}
	default:
		return errors.Newf("unknown storage.driver %q (allowed: sqlite, mysql, postgres)", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("invalid server.port %d", c.Server.Port)
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.Newf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.Newf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}
	if c.Server.RateLimitRPS < 0 {
		return errors.New("server.rate_limit_rps must not be negative")
	}
	return nil
}

// ArchiveEnabled reports whether analyses are mirrored to MinIO.
func (c *Config) ArchiveEnabled() bool {
	return strings.TrimSpace(c.Minio.Endpoint) != ""
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", key)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", key)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", key)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", key)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.Wrapf(err, "invalid %s", key)
	}
	*dst = d
	return nil
}
