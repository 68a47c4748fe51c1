package contract

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/kjstillabower/codex-platform-contract/internal/client"
	"github.com/kjstillabower/codex-platform-contract/internal/models"
)

// Scenario names, in default run order.
const (
	ScenarioGetPlatforms      = "get_platforms"
	ScenarioGetPlatformByName = "get_platform_by_name"
	ScenarioGetPlatformByID   = "get_platform_by_id"
	ScenarioAddUpdateDelete   = "add_update_delete_platform"
	ScenarioGetByIDIdempotent = "get_platform_by_id_idempotent"
	ScenarioDeleteIsTerminal  = "delete_is_terminal"
)

// Fixtures are the inputs scenarios send. The defaults match the records the
// platform service ships with.
type Fixtures struct {
	LookupName         string
	LookupID           string
	CreateName         string
	CreateManufacturer string
	UpdateName         string
	UpdateManufacturer string
	// Cleanup deletes records a scenario created but did not delete itself.
	Cleanup bool
}

// DefaultFixtures returns the stock fixture values with cleanup enabled.
func DefaultFixtures() Fixtures {
	return Fixtures{
		LookupName:         "Dreamcast",
		LookupID:           "66eb0fae96ad1476e9e20c55",
		CreateName:         "notaplatform",
		CreateManufacturer: "notamanufacturer",
		UpdateName:         "updatedplatform",
		UpdateManufacturer: "updatedmanufacturer",
		Cleanup:            true,
	}
}

// Env is what a scenario runs against.
type Env struct {
	Client   *client.Client
	Logger   *zap.Logger
	Fixtures Fixtures
}

// Scenario is one independent contract check. Run returns nil on pass.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// Scenarios returns every scenario in default order.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: ScenarioGetPlatforms, Run: getPlatforms},
		{Name: ScenarioGetPlatformByName, Run: getPlatformByName},
		{Name: ScenarioGetPlatformByID, Run: getPlatformByID},
		{Name: ScenarioAddUpdateDelete, Run: addUpdateDelete},
		{Name: ScenarioGetByIDIdempotent, Run: getPlatformByIDIdempotent},
		{Name: ScenarioDeleteIsTerminal, Run: deleteIsTerminal},
	}
}

// Select keeps the scenarios named in names, preserving the order of scenarios.
// An empty names selects everything; an unknown name is an error.
func Select(scenarios []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return scenarios, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var out []Scenario
	for _, s := range scenarios {
		if want[s.Name] {
			out = append(out, s)
			delete(want, s.Name)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown scenarios: %v", unknown)
	}
	return out, nil
}

// Names lists the names of scenarios.
func Names(scenarios []Scenario) []string {
	out := make([]string, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.Name
	}
	return out
}

// expectOK returns the decoded value of a successful call, or the call's error
// prefixed with the endpoint.
func expectOK(res client.Result, endpoint string) (any, error) {
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return res.Value(), nil
}

func getPlatforms(ctx context.Context, env *Env) error {
	res := env.Client.Call(ctx, client.EndpointGetPlatforms, client.WithMethod(http.MethodGet))
	v, err := expectOK(res, client.EndpointGetPlatforms)
	if err != nil {
		return err
	}
	return CheckPlatformList(v)
}

func getPlatformByName(ctx context.Context, env *Env) error {
	res := env.Client.Call(ctx, client.EndpointGetPlatformByName,
		client.WithBody(models.NameRequest{Name: env.Fixtures.LookupName}))
	v, err := expectOK(res, client.EndpointGetPlatformByName)
	if err != nil {
		return err
	}
	return CheckPlatform(v)
}

func lookupByID(ctx context.Context, env *Env, id string) client.Result {
	return env.Client.Call(ctx, client.EndpointGetPlatformByID, client.WithBody(models.IDRequest{ID: id}))
}

func getPlatformByID(ctx context.Context, env *Env) error {
	v, err := expectOK(lookupByID(ctx, env, env.Fixtures.LookupID), client.EndpointGetPlatformByID)
	if err != nil {
		return err
	}
	return CheckPlatform(v)
}

// addUpdateDelete walks one record through created, updated and deleted, requiring
// the ID to stay the same throughout.
func addUpdateDelete(ctx context.Context, env *Env) error {
	f := env.Fixtures
	return withPlatform(ctx, env, f.CreateName, f.CreateManufacturer, func(p *createdPlatform) error {
		res := env.Client.Call(ctx, client.EndpointUpdatePlatform, client.WithBody(models.UpdatePlatformRequest{
			ID:           p.ID,
			Name:         f.UpdateName,
			Manufacturer: f.UpdateManufacturer,
		}))
		v, err := expectOK(res, client.EndpointUpdatePlatform)
		if err != nil {
			return err
		}
		updatedID, ok := stringField(v, "ID")
		if !ok {
			return fmt.Errorf("%w: %s response has no ID", ErrShape, client.EndpointUpdatePlatform)
		}
		if updatedID != p.ID {
			return fmt.Errorf("%w: update changed ID from %s to %s", ErrAssertion, p.ID, updatedID)
		}

		return deleteCreated(ctx, env, p)
	})
}

// getPlatformByIDIdempotent requires two successive lookups to return identical data.
func getPlatformByIDIdempotent(ctx context.Context, env *Env) error {
	first, err := expectOK(lookupByID(ctx, env, env.Fixtures.LookupID), client.EndpointGetPlatformByID)
	if err != nil {
		return err
	}
	if err := CheckPlatform(first); err != nil {
		return err
	}
	second, err := expectOK(lookupByID(ctx, env, env.Fixtures.LookupID), client.EndpointGetPlatformByID)
	if err != nil {
		return err
	}
	if diff := cmp.Diff(first, second); diff != "" {
		return fmt.Errorf("%w: repeated lookup of %s differs (-first +second):\n%s", ErrAssertion, env.Fixtures.LookupID, diff)
	}
	return nil
}

// deleteIsTerminal requires a lookup after delete to fail rather than return the record.
func deleteIsTerminal(ctx context.Context, env *Env) error {
	f := env.Fixtures
	return withPlatform(ctx, env, f.CreateName, f.CreateManufacturer, func(p *createdPlatform) error {
		if err := deleteCreated(ctx, env, p); err != nil {
			return err
		}

		res := lookupByID(ctx, env, p.ID)
		switch res.Outcome {
		case client.OutcomeOK:
			if id, ok := stringField(res.Value(), "ID"); ok && id == p.ID {
				return fmt.Errorf("%w: platform %s still returned after delete", ErrAssertion, p.ID)
			}
		case client.OutcomeTransportError:
			env.Logger.Warn("lookup after delete failed in transport",
				zap.String("id", p.ID), zap.Error(res.Err()))
		}
		return nil
	})
}

// deleteCreated deletes p and requires the confirmation message.
func deleteCreated(ctx context.Context, env *Env, p *createdPlatform) error {
	res := env.Client.Call(ctx, client.EndpointDeletePlatform, client.WithBody(models.IDRequest{ID: p.ID}))
	v, err := expectOK(res, client.EndpointDeletePlatform)
	if err != nil {
		return err
	}
	p.MarkDeleted()

	msg, ok := stringField(v, "message")
	if !ok {
		return fmt.Errorf("%w: %s response has no message", ErrShape, client.EndpointDeletePlatform)
	}
	if msg != client.DeleteConfirmation {
		return fmt.Errorf("%w: delete message %q, want %q", ErrAssertion, msg, client.DeleteConfirmation)
	}
	return nil
}
