package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/codex-platform-contract/internal/circuitbreaker"
	"github.com/kjstillabower/codex-platform-contract/internal/models"
	"github.com/kjstillabower/codex-platform-contract/internal/observability"
)

func platform(id, name string) models.Platform {
	return models.Platform{ID: id, Name: name, Manufacturer: "Sega", Type: models.PlatformType}
}

// TestInMemoryStore_PutGet verifies that Put stores values and Get retrieves them.
func TestInMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	val := platform("66eb0fae96ad1476e9e20c55", "Dreamcast")
	require.NoError(t, s.Put(ctx, val))

	got, ok, err := s.Get(ctx, val.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, val, got)
}

func TestInMemoryStore_Get_Miss(t *testing.T) {
	s := NewInMemoryStore()

	_, ok, err := s.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestInMemoryStore_ListOrder verifies insertion order survives replacement and deletion.
func TestInMemoryStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	require.NoError(t, s.Put(ctx, platform("a", "Saturn")))
	require.NoError(t, s.Put(ctx, platform("b", "Dreamcast")))
	require.NoError(t, s.Put(ctx, platform("c", "Genesis")))
	require.NoError(t, s.Put(ctx, platform("a", "Sega Saturn")))

	_, ok, err := s.Delete(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Sega Saturn", all[0].Name)
	assert.Equal(t, "Genesis", all[1].Name)
	assert.Equal(t, 2, s.Len())
}

func TestInMemoryStore_List_EmptyIsNotNil(t *testing.T) {
	all, err := NewInMemoryStore().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestInMemoryStore_FindByName(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Put(ctx, platform("a", "Dreamcast")))

	tests := []struct {
		name   string
		lookup string
		wantOK bool
	}{
		{"exact", "Dreamcast", true},
		{"case differs", "dreamcast", false},
		{"missing", "Saturn", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := s.FindByName(ctx, tt.lookup)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "a", got.ID)
			}
		})
	}
}

func TestInMemoryStore_Delete_Missing(t *testing.T) {
	_, ok, err := NewInMemoryStore().Delete(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewInMemoryStore()

	_, err := s.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Put(ctx, platform("a", "x")), context.Canceled)
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", i)
			_ = s.Put(ctx, platform(id, id))
			_, _, _ = s.Get(ctx, id)
			_, _ = s.List(ctx)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

type failingStore struct {
	*InMemoryStore
	err error
}

func (f *failingStore) Get(ctx context.Context, id string) (models.Platform, bool, error) {
	return models.Platform{}, false, f.err
}

func TestInstrument_RecordsErrorsAndSize(t *testing.T) {
	ctx := context.Background()

	inner := &failingStore{InMemoryStore: NewInMemoryStore(), err: fmt.Errorf("%w: boom", ErrUnavailable)}
	s := Instrument(inner, "test_backend")

	before := testutil.ToFloat64(observability.StoreErrorsTotal.WithLabelValues("test_backend", "get"))
	_, _, err := s.Get(ctx, "x")
	require.True(t, errors.Is(err, ErrUnavailable))
	after := testutil.ToFloat64(observability.StoreErrorsTotal.WithLabelValues("test_backend", "get"))
	assert.Equal(t, before+1, after)

	require.NoError(t, Seed(ctx, s, []models.Platform{platform("a", "Dreamcast"), platform("b", "Saturn")}))
	assert.Equal(t, float64(2), testutil.ToFloat64(observability.PlatformsStored))
}

func TestGuard_FailsFastWhenOpen(t *testing.T) {
	ctx := context.Background()
	inner := &failingStore{InMemoryStore: NewInMemoryStore(), err: fmt.Errorf("%w: connection refused", ErrUnavailable)}
	require.NoError(t, inner.Put(ctx, platform("a", "Dreamcast")))
	s := Guard(inner, circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, OpenTimeout: time.Hour}))

	for i := 0; i < 2; i++ {
		_, _, err := s.Get(ctx, "a")
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}

	_, err := s.List(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen, "List should not reach the backend while open")
}

func TestGuard_PassesThroughWhenClosed(t *testing.T) {
	ctx := context.Background()
	s := Guard(NewInMemoryStore(), circuitbreaker.New(circuitbreaker.Config{}))

	require.NoError(t, s.Put(ctx, platform("a", "Dreamcast")))
	got, ok, err := s.FindByName(ctx, "Dreamcast")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", got.ID)

	deleted, ok, err := s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Dreamcast", deleted.Name)

	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
