package store

import (
	"context"

	"github.com/kjstillabower/codex-platform-contract/internal/models"
	"github.com/kjstillabower/codex-platform-contract/internal/observability"
)

// Backend names used in config and metric labels.
const (
	BackendInMemory  = "in_memory"
	BackendMemcached = "memcached"
)

// instrumented records storeErrorsTotal per operation and keeps platformsStored current.
type instrumented struct {
	next    Store
	backend string
}

// Instrument wraps s so its failures and size show up in metrics.
func Instrument(s Store, backend string) Store {
	return &instrumented{next: s, backend: backend}
}

func (s *instrumented) record(op string, err error) {
	if err != nil {
		observability.StoreErrorsTotal.WithLabelValues(s.backend, op).Inc()
	}
}

func (s *instrumented) List(ctx context.Context) ([]models.Platform, error) {
	out, err := s.next.List(ctx)
	s.record("list", err)
	if err == nil {
		observability.PlatformsStored.Set(float64(len(out)))
	}
	return out, err
}

func (s *instrumented) Get(ctx context.Context, id string) (models.Platform, bool, error) {
	p, ok, err := s.next.Get(ctx, id)
	s.record("get", err)
	return p, ok, err
}

func (s *instrumented) FindByName(ctx context.Context, name string) (models.Platform, bool, error) {
	p, ok, err := s.next.FindByName(ctx, name)
	s.record("find_by_name", err)
	return p, ok, err
}

func (s *instrumented) Put(ctx context.Context, p models.Platform) error {
	err := s.next.Put(ctx, p)
	s.record("put", err)
	if err == nil {
		s.refreshSize(ctx)
	}
	return err
}

func (s *instrumented) Delete(ctx context.Context, id string) (models.Platform, bool, error) {
	p, ok, err := s.next.Delete(ctx, id)
	s.record("delete", err)
	if err == nil && ok {
		s.refreshSize(ctx)
	}
	return p, ok, err
}

func (s *instrumented) refreshSize(ctx context.Context) {
	if m, ok := s.next.(interface{ Len() int }); ok {
		observability.PlatformsStored.Set(float64(m.Len()))
		return
	}
	if all, err := s.next.List(ctx); err == nil {
		observability.PlatformsStored.Set(float64(len(all)))
	}
}

// Seed puts every platform into s, in order.
func Seed(ctx context.Context, s Store, platforms []models.Platform) error {
	for _, p := range platforms {
		if err := s.Put(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
