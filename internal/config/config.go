package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/codex-platform-contract/internal/validation"
)

// Store backends.
const (
	StoreBackendInMemory  = "in_memory"
	StoreBackendMemcached = "memcached"
)

// SeedPlatform is a record the service double is loaded with on startup.
type SeedPlatform struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Manufacturer string `yaml:"manufacturer"`
}

// Config holds runner and service double configuration loaded from YAML, .env and env.
type Config struct {
	// APIKey is sent by the runner as X-API-Key and, when set, required by the double.
	APIKey string

	BaseURL       string
	ClientTimeout time.Duration
	ClientHeaders map[string]string

	LookupName      string
	LookupID        string
	Cleanup         bool
	Scenarios       []string
	ScenarioTimeout time.Duration

	ServerPort      string
	APIPrefix       string
	RateLimitRPS    int
	RateLimitBurst  int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Seed            []SeedPlatform

	StoreBackend          string
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	MemcachedNamespace    string

	BreakerEnabled          bool
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerOpenTimeout      time.Duration
}

type fileConfig struct {
	Client struct {
		BaseURL string            `yaml:"base_url"`
		Timeout string            `yaml:"timeout"`
		Headers map[string]string `yaml:"headers"`
	} `yaml:"client"`

	Contract struct {
		LookupName      string   `yaml:"lookup_name"`
		LookupID        string   `yaml:"lookup_id"`
		Cleanup         *bool    `yaml:"cleanup"`
		Scenarios       []string `yaml:"scenarios"`
		ScenarioTimeout string   `yaml:"scenario_timeout"`
	} `yaml:"contract"`

	Server struct {
		Port           string  `yaml:"port"`
		Prefix         *string `yaml:"prefix"`
		RateLimitRPS   int     `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
		RequestTimeout string  `yaml:"request_timeout"`
		Shutdown       struct {
			Timeout string `yaml:"timeout"`
		} `yaml:"shutdown"`
		Seed []SeedPlatform `yaml:"seed"`
	} `yaml:"server"`

	Store struct {
		Backend   string `yaml:"backend"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
			Namespace    string `yaml:"namespace"`
		} `yaml:"memcached"`
		CircuitBreaker struct {
			Enabled          *bool  `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			OpenTimeout      string `yaml:"open_timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"store"`
}

type secretsFile struct {
	APIKey string `yaml:"api_key"`
}

// Load reads configuration relative to the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom reads dir/.env (optional, never overriding the real environment), then
// dir/config/{ENV_NAME}.yaml (default dev) and dir/config/secrets.yaml (optional).
// Env vars override file values.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.APIKey = os.Getenv("CODEX_API_KEY")
	if cfg.APIKey == "" {
		key, err := loadAPIKeyFromSecrets(filepath.Join(dir, "config", "secrets.yaml"))
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
	}

	cfg.BaseURL = envOr("CODEX_BASE_URL", fc.Client.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://127.0.0.1:3000/api/"
	}
	cfg.ClientTimeout = parseDurationOrZero(envOr("CODEX_REQUEST_TIMEOUT", fc.Client.Timeout), 0)
	cfg.ClientHeaders = fc.Client.Headers

	cfg.LookupName = fc.Contract.LookupName
	if cfg.LookupName == "" {
		cfg.LookupName = "Dreamcast"
	}
	cfg.LookupID = fc.Contract.LookupID
	if cfg.LookupID == "" {
		cfg.LookupID = "66eb0fae96ad1476e9e20c55"
	}
	cfg.Cleanup = true
	if fc.Contract.Cleanup != nil {
		cfg.Cleanup = *fc.Contract.Cleanup
	}
	cfg.Scenarios = fc.Contract.Scenarios
	cfg.ScenarioTimeout = parseDurationOrZero(fc.Contract.ScenarioTimeout, 30*time.Second)

	cfg.ServerPort = envOr("SERVER_PORT", fc.Server.Port)
	if cfg.ServerPort == "" {
		cfg.ServerPort = "3000"
	}
	cfg.APIPrefix = "/api"
	if fc.Server.Prefix != nil {
		cfg.APIPrefix = *fc.Server.Prefix
	}
	cfg.RateLimitRPS = fc.Server.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Server.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}
	cfg.RequestTimeout = parseDuration(fc.Server.RequestTimeout, 5*time.Second)
	cfg.ShutdownTimeout = parseDuration(fc.Server.Shutdown.Timeout, 30*time.Second)
	cfg.Seed = fc.Server.Seed

	cfg.StoreBackend = strings.TrimSpace(strings.ToLower(envOr("STORE_BACKEND", fc.Store.Backend)))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreBackendInMemory
	}
	cfg.MemcachedAddrs = strings.TrimSpace(envOr("MEMCACHED_ADDRS", fc.Store.Memcached.Addrs))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Store.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Store.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.MemcachedNamespace = fc.Store.Memcached.Namespace
	if cfg.MemcachedNamespace == "" {
		cfg.MemcachedNamespace = "codex:"
	}
	cfg.BreakerEnabled = true
	if fc.Store.CircuitBreaker.Enabled != nil {
		cfg.BreakerEnabled = *fc.Store.CircuitBreaker.Enabled
	}
	cfg.BreakerFailureThreshold = fc.Store.CircuitBreaker.FailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerSuccessThreshold = fc.Store.CircuitBreaker.SuccessThreshold
	if cfg.BreakerSuccessThreshold <= 0 {
		cfg.BreakerSuccessThreshold = 2
	}
	cfg.BreakerOpenTimeout = parseDuration(fc.Store.CircuitBreaker.OpenTimeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAPIKeyFromSecrets(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return sec.APIKey, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative values are returned as-is; "0s" disables the client and scenario timeouts.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values and rewrites
// seed IDs to their canonical lowercase form.
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CODEX_BASE_URL must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return fmt.Errorf("CODEX_BASE_URL must not carry a query or fragment, got %q", cfg.BaseURL)
	}
	if cfg.ClientTimeout < 0 {
		return fmt.Errorf("client.timeout must not be negative")
	}
	if cfg.ScenarioTimeout < 0 {
		return fmt.Errorf("contract.scenario_timeout must not be negative")
	}
	switch cfg.StoreBackend {
	case StoreBackendInMemory, StoreBackendMemcached:
		// valid
	default:
		return fmt.Errorf("store.backend must be in_memory or memcached, got %q", cfg.StoreBackend)
	}
	seen := make(map[string]int, len(cfg.Seed))
	for i, p := range cfg.Seed {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("server.seed[%d] needs id and name", i)
		}
		id, err := validation.ParseID(p.ID)
		if err != nil {
			return fmt.Errorf("server.seed[%d] id %q must be a 24 character hex object id", i, p.ID)
		}
		if j, dup := seen[id]; dup {
			return fmt.Errorf("server.seed[%d] id %q duplicates server.seed[%d]", i, p.ID, j)
		}
		seen[id] = i
		cfg.Seed[i].ID = id
	}
	return nil
}
