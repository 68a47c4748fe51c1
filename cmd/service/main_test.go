package main

import (
	"testing"

	"github.com/kjstillabower/codex-platform-contract/internal/config"
	"github.com/kjstillabower/codex-platform-contract/internal/models"
)

func TestSeedPlatforms(t *testing.T) {
	got := seedPlatforms([]config.SeedPlatform{
		{ID: "66eb0fae96ad1476e9e20c55", Name: "Dreamcast", Manufacturer: "Sega"},
		{ID: "66eb0fae96ad1476e9e20c57", Name: "GameCube", Manufacturer: "Nintendo"},
	})
	if len(got) != 2 {
		t.Fatalf("seedPlatforms() len = %d, want 2", len(got))
	}
	for _, p := range got {
		if p.Type != models.PlatformType {
			t.Errorf("%s Type = %q, want %q", p.Name, p.Type, models.PlatformType)
		}
	}
	if got[1].Manufacturer != "Nintendo" {
		t.Errorf("got[1] = %+v", got[1])
	}
	if seedPlatforms(nil) == nil {
		t.Error("seedPlatforms(nil) = nil, want empty slice")
	}
}

// TestCoverageGaps_IntentionallyUntested documents why the rest of cmd/service has no unit tests.
// Run with -v to see skip reason.
func TestCoverageGaps_IntentionallyUntested(t *testing.T) {
	t.Skip("main() is wiring-only; the router, store and lifecycle it assembles are tested in internal packages and end to end via testhelpers.StartDouble")
}
