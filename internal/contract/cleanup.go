package contract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/codex-platform-contract/internal/client"
	"github.com/kjstillabower/codex-platform-contract/internal/models"
	"github.com/kjstillabower/codex-platform-contract/internal/observability"
)

// cleanupTimeout bounds the best-effort delete; it runs even after ctx is cancelled.
const cleanupTimeout = 10 * time.Second

// createdPlatform is a record a scenario created and still owns.
type createdPlatform struct {
	ID      string
	deleted bool
}

// MarkDeleted records that the scenario deleted the platform itself.
func (p *createdPlatform) MarkDeleted() {
	p.deleted = true
}

// withPlatform creates a platform, hands it to fn and, unless fn deleted it or cleanup
// is disabled, deletes it on every exit path. An application error on create is a
// terminal failure. Cleanup failures are logged and never change fn's result.
func withPlatform(ctx context.Context, env *Env, name, manufacturer string, fn func(p *createdPlatform) error) error {
	res := env.Client.Call(ctx, client.EndpointAddPlatform, client.WithBody(models.AddPlatformRequest{
		Name:         name,
		Manufacturer: manufacturer,
	}))
	v, err := expectOK(res, client.EndpointAddPlatform)
	if err != nil {
		return err
	}
	id, ok := stringField(v, "ID")
	if !ok || id == "" {
		return fmt.Errorf("%w: %s response has no ID", ErrShape, client.EndpointAddPlatform)
	}

	p := &createdPlatform{ID: id}
	defer func() {
		if p.deleted {
			return
		}
		if !env.Fixtures.Cleanup {
			observability.ContractCleanupsTotal.WithLabelValues("skipped").Inc()
			env.Logger.Warn("leaving created platform in place", zap.String("id", id))
			return
		}
		cleanupPlatform(ctx, env, id)
	}()

	return fn(p)
}

func cleanupPlatform(ctx context.Context, env *Env, id string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if _, err := env.Client.DeletePlatform(cctx, id); err != nil {
		observability.ContractCleanupsTotal.WithLabelValues("failed").Inc()
		env.Logger.Error("cleanup delete failed", zap.String("id", id), zap.Error(err))
		return
	}
	observability.ContractCleanupsTotal.WithLabelValues("deleted").Inc()
	env.Logger.Info("cleaned up platform", zap.String("id", id))
}
