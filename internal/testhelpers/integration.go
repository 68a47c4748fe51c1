//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"time"

	"github.com/kjstillabower/codex-platform-contract/internal/client"
)

// IntegrationTestConfig holds configuration for tests against a live platform service.
type IntegrationTestConfig struct {
	BaseURL       string
	APIKey        string
	LookupName    string
	LookupID      string
	MemcachedAddr string
}

// SkipTB can skip; both *testing.T and GinkgoT satisfy it.
type SkipTB interface {
	TB
	Skip(args ...any)
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if CODEX_BASE_URL is not set.
func GetIntegrationConfig(t SkipTB) IntegrationTestConfig {
	t.Helper()
	baseURL := os.Getenv("CODEX_BASE_URL")
	if baseURL == "" {
		t.Skip("CODEX_BASE_URL not set, skipping integration test")
	}

	cfg := IntegrationTestConfig{
		BaseURL:       baseURL,
		APIKey:        os.Getenv("CODEX_API_KEY"),
		LookupName:    os.Getenv("CODEX_LOOKUP_NAME"),
		LookupID:      os.Getenv("CODEX_LOOKUP_ID"),
		MemcachedAddr: os.Getenv("MEMCACHED_ADDRS"),
	}
	if cfg.LookupName == "" {
		cfg.LookupName = "Dreamcast"
	}
	if cfg.LookupID == "" {
		cfg.LookupID = DreamcastID
	}
	if cfg.MemcachedAddr == "" {
		cfg.MemcachedAddr = "localhost:11211"
	}
	return cfg
}

// SetupIntegrationClient creates a platform client for the live service.
func SetupIntegrationClient(t TB, cfg IntegrationTestConfig) *client.Client {
	t.Helper()
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["X-API-Key"] = cfg.APIKey
	}
	c, err := client.New(client.Config{BaseURL: cfg.BaseURL, Timeout: 10 * time.Second, Headers: headers}, nil)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c
}
