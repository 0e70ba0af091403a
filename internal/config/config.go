// Package config loads the service configuration: defaults, then an optional
// YAML file, then CSRLAB_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StorageFirestore = "firestore"

	SessionsMemory = "memory"
	SessionsRedis  = "redis"

	ProviderOffline = "offline"
	ProviderGemini  = "gemini"
	ProviderVertex  = "vertex"
	ProviderOpenAI  = "openai"
	ProviderAzure   = "azure"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Storage  StorageConfig  `yaml:"storage"`
	GCP      GCPConfig      `yaml:"gcp"`
	Sessions SessionsConfig `yaml:"sessions"`
	Redis    RedisConfig    `yaml:"redis"`
	LLM      LLMConfig      `yaml:"llm"`
	Study    StudyConfig    `yaml:"study"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"` // memory, sqlite or firestore
	SQLitePath string `yaml:"sqlite_path"`
}

type GCPConfig struct {
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
}

type SessionsConfig struct {
	Backend string        `yaml:"backend"` // memory or redis
	TTL     time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LLMConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIVersion string `yaml:"api_version"`

	// APIKey is read from the environment only.
	APIKey string `yaml:"-"`

	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`

	// Timeout applies to every capability without an entry in Timeouts.
	Timeout  time.Duration            `yaml:"timeout"`
	Timeouts map[string]time.Duration `yaml:"timeouts"`
}

type StudyConfig struct {
	QuotaPerCell  int    `yaml:"quota_per_cell"`
	ScreenOutURL  string `yaml:"screen_out_url"`
	CompletionURL string `yaml:"completion_url"`
}

// Default returns the local development configuration.
func Default() *Config {
	return &Config{
		Port:     "8080",
		LogLevel: "info",
		Storage: StorageConfig{
			Backend:    StorageMemory,
			SQLitePath: "data/csrlab.db",
		},
		GCP: GCPConfig{
			Location: "us-central1",
		},
		Sessions: SessionsConfig{
			Backend: SessionsMemory,
			TTL:     6 * time.Hour,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		LLM: LLMConfig{
			Provider:      ProviderOffline,
			Model:         "gemini-2.5-flash-lite",
			APIVersion:    "2024-06-01",
			RatePerSecond: 5,
			Burst:         10,
			Timeout:       20 * time.Second,
		},
		Study: StudyConfig{
			QuotaPerCell:  30,
			ScreenOutURL:  "https://app.prolific.com/submissions/complete?cc=SCREENED_OUT",
			CompletionURL: "/complete/",
		},
	}
}

// TimeoutFor returns the deadline for one capability.
func (c LLMConfig) TimeoutFor(capability string) time.Duration {
	if d, ok := c.Timeouts[capability]; ok && d > 0 {
		return d
	}
	return c.Timeout
}

// Load builds the config. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func (c *Config) applyEnv() error {
	var err error

	c.Port = getEnv("CSRLAB_PORT", c.Port)
	c.LogLevel = getEnv("CSRLAB_LOG_LEVEL", c.LogLevel)

	c.Storage.Backend = getEnv("CSRLAB_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.SQLitePath = getEnv("CSRLAB_SQLITE_PATH", c.Storage.SQLitePath)

	c.GCP.ProjectID = getEnv("CSRLAB_GCP_PROJECT", c.GCP.ProjectID)
	c.GCP.Location = getEnv("CSRLAB_GCP_LOCATION", c.GCP.Location)

	c.Sessions.Backend = getEnv("CSRLAB_SESSION_BACKEND", c.Sessions.Backend)
	if c.Sessions.TTL, err = getDurationEnv("CSRLAB_SESSION_TTL", c.Sessions.TTL); err != nil {
		return err
	}

	c.Redis.Addr = getEnv("CSRLAB_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("CSRLAB_REDIS_PASSWORD", c.Redis.Password)
	if c.Redis.DB, err = getIntEnv("CSRLAB_REDIS_DB", c.Redis.DB); err != nil {
		return err
	}

	c.LLM.Provider = getEnv("CSRLAB_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("CSRLAB_MODEL_NAME", c.LLM.Model)
	c.LLM.BaseURL = getEnv("CSRLAB_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIVersion = getEnv("CSRLAB_LLM_API_VERSION", c.LLM.APIVersion)
	c.LLM.APIKey = getEnv("CSRLAB_LLM_API_KEY", c.LLM.APIKey)
	if c.LLM.RatePerSecond, err = getFloatEnv("CSRLAB_LLM_RATE", c.LLM.RatePerSecond); err != nil {
		return err
	}
	if c.LLM.Burst, err = getIntEnv("CSRLAB_LLM_BURST", c.LLM.Burst); err != nil {
		return err
	}
	if c.LLM.Timeout, err = getDurationEnv("CSRLAB_LLM_TIMEOUT", c.LLM.Timeout); err != nil {
		return err
	}

	if c.Study.QuotaPerCell, err = getIntEnv("CSRLAB_QUOTA_PER_CELL", c.Study.QuotaPerCell); err != nil {
		return err
	}
	c.Study.ScreenOutURL = getEnv("CSRLAB_SCREEN_OUT_URL", c.Study.ScreenOutURL)
	c.Study.CompletionURL = getEnv("CSRLAB_COMPLETION_URL", c.Study.CompletionURL)

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for sqlite"))
		}
	case StorageFirestore:
		if c.GCP.ProjectID == "" {
			errs = append(errs, errors.New("gcp.project_id is required for firestore"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	switch c.Sessions.Backend {
	case SessionsMemory:
	case SessionsRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for redis sessions"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sessions.backend %q", c.Sessions.Backend))
	}

	switch c.LLM.Provider {
	case ProviderOffline, ProviderOpenAI:
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("CSRLAB_LLM_API_KEY is required for gemini"))
		}
	case ProviderVertex:
		if c.GCP.ProjectID == "" || c.GCP.Location == "" {
			errs = append(errs, errors.New("gcp.project_id and gcp.location are required for vertex"))
		}
	case ProviderAzure:
		if c.LLM.BaseURL == "" {
			errs = append(errs, errors.New("llm.base_url is required for azure"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	if c.LLM.Provider != ProviderOffline && c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.LLM.RatePerSecond <= 0 || c.LLM.Burst <= 0 {
		errs = append(errs, errors.New("llm.rate_per_second and llm.burst must be positive"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}

	if c.Study.QuotaPerCell <= 0 {
		errs = append(errs, errors.New("study.quota_per_cell must be positive"))
	}

	return errors.Join(errs...)
}
