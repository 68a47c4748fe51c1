package testhelpers

import (
	"context"
	"net/http/httptest"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/codex-platform-contract/internal/client"
	httpapi "github.com/kjstillabower/codex-platform-contract/internal/http"
	"github.com/kjstillabower/codex-platform-contract/internal/models"
	"github.com/kjstillabower/codex-platform-contract/internal/service"
	"github.com/kjstillabower/codex-platform-contract/internal/store"
)

// TB is the subset of testing.TB (and ginkgo's GinkgoT) the helpers need.
type TB interface {
	Helper()
	Cleanup(func())
	Fatalf(format string, args ...any)
}

// DreamcastID is the identifier of the seeded Dreamcast record.
const DreamcastID = "66eb0fae96ad1476e9e20c55"

// SeedPlatforms are the records a fresh double starts with.
func SeedPlatforms() []models.Platform {
	return []models.Platform{
		{ID: DreamcastID, Name: "Dreamcast", Manufacturer: "Sega", Type: models.PlatformType},
		{ID: "66eb0fae96ad1476e9e20c56", Name: "Saturn", Manufacturer: "Sega", Type: models.PlatformType},
		{ID: "66eb0fae96ad1476e9e20c57", Name: "GameCube", Manufacturer: "Nintendo", Type: models.PlatformType},
	}
}

// Double is an in-process platform service on a loopback listener.
type Double struct {
	Server *httptest.Server
	Store  *store.InMemoryStore
	// BaseURL is the API prefix clients should be configured with.
	BaseURL string
}

// StartDouble starts a seeded double and stops it at test cleanup.
func StartDouble(t TB, opts httpapi.RouterOptions) *Double {
	t.Helper()
	st := store.NewInMemoryStore()
	if err := store.Seed(context.Background(), st, SeedPlatforms()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	h := httpapi.NewHandler(service.NewPlatformService(st), zap.NewNop(), nil)
	srv := httptest.NewServer(httpapi.NewRouter(h, opts))
	t.Cleanup(srv.Close)

	return &Double{Server: srv, Store: st, BaseURL: srv.URL + httpapi.NormalizePrefix(opts.Prefix) + "/"}
}

// NewClient returns a client for d with a short timeout.
func (d *Double) NewClient(t TB, headers map[string]string) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{BaseURL: d.BaseURL, Timeout: 5 * time.Second, Headers: headers}, nil)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c
}
