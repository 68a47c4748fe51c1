package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjstillabower/codex-platform-contract/internal/circuitbreaker"
	"github.com/kjstillabower/codex-platform-contract/internal/models"
)

// guarded routes every operation through a circuit breaker so a dead backend fails
// fast with ErrUnavailable instead of waiting out the client timeout per request.
type guarded struct {
	next Store
	cb   *circuitbreaker.CircuitBreaker
}

// Guard wraps s with cb.
func Guard(s Store, cb *circuitbreaker.CircuitBreaker) Store {
	return &guarded{next: s, cb: cb}
}

func (s *guarded) do(fn func() error) error {
	err := s.cb.Do(fn)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func (s *guarded) List(ctx context.Context) ([]models.Platform, error) {
	var out []models.Platform
	err := s.do(func() (err error) {
		out, err = s.next.List(ctx)
		return err
	})
	return out, err
}

func (s *guarded) Get(ctx context.Context, id string) (models.Platform, bool, error) {
	var p models.Platform
	var ok bool
	err := s.do(func() (err error) {
		p, ok, err = s.next.Get(ctx, id)
		return err
	})
	return p, ok, err
}

func (s *guarded) FindByName(ctx context.Context, name string) (models.Platform, bool, error) {
	var p models.Platform
	var ok bool
	err := s.do(func() (err error) {
		p, ok, err = s.next.FindByName(ctx, name)
		return err
	})
	return p, ok, err
}

func (s *guarded) Put(ctx context.Context, p models.Platform) error {
	return s.do(func() error {
		return s.next.Put(ctx, p)
	})
}

func (s *guarded) Delete(ctx context.Context, id string) (models.Platform, bool, error) {
	var p models.Platform
	var ok bool
	err := s.do(func() (err error) {
		p, ok, err = s.next.Delete(ctx, id)
		return err
	})
	return p, ok, err
}
