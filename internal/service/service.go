package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/codex-platform-contract/internal/models"
	"github.com/kjstillabower/codex-platform-contract/internal/observability"
	"github.com/kjstillabower/codex-platform-contract/internal/store"
	"github.com/kjstillabower/codex-platform-contract/internal/validation"
)

var (
	// ErrPlatformNotFound is returned when no platform matches the name or ID.
	ErrPlatformNotFound = errors.New("platform not found")
	// ErrInvalidID is returned for identifiers that are not hex ObjectIDs.
	ErrInvalidID = validation.ErrInvalidID
	// ErrDuplicateName is returned when another platform already uses the name.
	ErrDuplicateName = errors.New("platform name already exists")
	// ErrValidation is returned when name or manufacturer fail field validation.
	ErrValidation = validation.ErrInvalidPlatform
)

// PlatformService implements platform management on top of a store.Store.
// Writes are serialized so the name uniqueness check and the write are atomic.
type PlatformService struct {
	store   store.Store
	writeMu sync.Mutex
}

// NewPlatformService creates a PlatformService backed by s.
func NewPlatformService(s store.Store) *PlatformService {
	return &PlatformService{store: s}
}

// List returns all platforms. A non-empty nameFilter keeps only platforms whose name
// contains it, case-insensitively.
func (s *PlatformService) List(ctx context.Context, nameFilter string) ([]models.Platform, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	filter := strings.ToLower(strings.TrimSpace(nameFilter))
	if filter == "" {
		return all, nil
	}

	out := make([]models.Platform, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), filter) {
			out = append(out, p)
		}
	}
	observability.LoggerFromContext(ctx).Debug("platforms filtered",
		zap.String("filter", nameFilter), zap.Int("matched", len(out)), zap.Int("total", len(all)))
	return out, nil
}

// GetByName returns the platform with exactly this name.
func (s *PlatformService) GetByName(ctx context.Context, name string) (models.Platform, error) {
	p, ok, err := s.store.FindByName(ctx, name)
	if err != nil {
		return models.Platform{}, fmt.Errorf("find platform %q: %w", name, err)
	}
	if !ok {
		return models.Platform{}, ErrPlatformNotFound
	}
	return p, nil
}

// GetByID returns the platform with this ID.
func (s *PlatformService) GetByID(ctx context.Context, id string) (models.Platform, error) {
	key, err := validation.ParseID(id)
	if err != nil {
		return models.Platform{}, err
	}
	p, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return models.Platform{}, fmt.Errorf("get platform %s: %w", key, err)
	}
	if !ok {
		return models.Platform{}, ErrPlatformNotFound
	}
	return p, nil
}

// Create validates the fields, assigns a fresh ID and the platform type, and stores the record.
func (s *PlatformService) Create(ctx context.Context, name, manufacturer string) (models.Platform, error) {
	if err := validation.ValidatePlatform(name, manufacturer); err != nil {
		return models.Platform{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, ok, err := s.store.FindByName(ctx, name); err != nil {
		return models.Platform{}, fmt.Errorf("check platform name: %w", err)
	} else if ok {
		return models.Platform{}, ErrDuplicateName
	}

	p := models.Platform{
		ID:           validation.NewID(),
		Name:         name,
		Manufacturer: manufacturer,
		Type:         models.PlatformType,
	}
	if err := s.store.Put(ctx, p); err != nil {
		return models.Platform{}, fmt.Errorf("store platform: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("platform created", zap.String("id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Update replaces name and manufacturer of the platform with this ID. Empty fields
// keep their current value. The ID and type never change.
func (s *PlatformService) Update(ctx context.Context, id, name, manufacturer string) (models.Platform, error) {
	key, err := validation.ParseID(id)
	if err != nil {
		return models.Platform{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return models.Platform{}, fmt.Errorf("get platform %s: %w", key, err)
	}
	if !ok {
		return models.Platform{}, ErrPlatformNotFound
	}

	updated := current
	if name != "" {
		updated.Name = name
	}
	if manufacturer != "" {
		updated.Manufacturer = manufacturer
	}
	if err := validation.ValidatePlatform(updated.Name, updated.Manufacturer); err != nil {
		return models.Platform{}, err
	}

	if updated.Name != current.Name {
		other, ok, err := s.store.FindByName(ctx, updated.Name)
		if err != nil {
			return models.Platform{}, fmt.Errorf("check platform name: %w", err)
		}
		if ok && other.ID != key {
			return models.Platform{}, ErrDuplicateName
		}
	}

	if err := s.store.Put(ctx, updated); err != nil {
		return models.Platform{}, fmt.Errorf("store platform: %w", err)
	}
	observability.LoggerFromContext(ctx).Info("platform updated", zap.String("id", key), zap.String("name", updated.Name))
	return updated, nil
}

// Delete removes the platform with this ID. Deleting an unknown ID is not an error;
// the returned bool reports whether a record was removed.
func (s *PlatformService) Delete(ctx context.Context, id string) (models.Platform, bool, error) {
	key, err := validation.ParseID(id)
	if err != nil {
		return models.Platform{}, false, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	p, ok, err := s.store.Delete(ctx, key)
	if err != nil {
		return models.Platform{}, false, fmt.Errorf("delete platform %s: %w", key, err)
	}
	if ok {
		observability.LoggerFromContext(ctx).Info("platform deleted", zap.String("id", key), zap.String("name", p.Name))
	}
	return p, ok, nil
}
