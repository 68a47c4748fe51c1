package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/codex-platform-contract/internal/models"
)

const (
	keyPrefix = "platform:"
	indexKey  = keyPrefix + "index"
)

// MemcachedStore implements Store on memcached. Each platform is a JSON item under
// platform:<id>; platform:index holds the ordered ID list. Items never expire.
// Index updates are serialized within the process; run one double per namespace.
type MemcachedStore struct {
	client    *memcache.Client
	namespace string
	mu        sync.Mutex
}

// NewMemcachedStore creates a MemcachedStore. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero. namespace prefixes every key
// so parallel test runs do not share records.
func NewMemcachedStore(addrs string, timeout time.Duration, maxIdleConns int, namespace string) *MemcachedStore {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedStore{client: client, namespace: namespace}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (s *MemcachedStore) key(k string) string {
	return s.namespace + k
}

func (s *MemcachedStore) List(ctx context.Context) ([]models.Platform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Platform{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(keyPrefix + id)
	}
	items, err := s.client.GetMulti(keys)
	if err != nil {
		return nil, fmt.Errorf("%w: get platforms: %w", ErrUnavailable, err)
	}

	out := make([]models.Platform, 0, len(ids))
	for _, k := range keys {
		item, ok := items[k]
		if !ok {
			continue // evicted or deleted between index read and fetch
		}
		var p models.Platform
		if err := json.Unmarshal(item.Value, &p); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", ErrUnavailable, k, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *MemcachedStore) Get(ctx context.Context, id string) (models.Platform, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Platform{}, false, err
	}
	item, err := s.client.Get(s.key(keyPrefix + id))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Platform{}, false, nil
		}
		return models.Platform{}, false, fmt.Errorf("%w: get %s: %w", ErrUnavailable, id, err)
	}
	var p models.Platform
	if err := json.Unmarshal(item.Value, &p); err != nil {
		return models.Platform{}, false, fmt.Errorf("%w: decode %s: %w", ErrUnavailable, id, err)
	}
	return p, true, nil
}

// FindByName scans the index; memcached has no secondary lookups.
func (s *MemcachedStore) FindByName(ctx context.Context, name string) (models.Platform, bool, error) {
	all, err := s.List(ctx)
	if err != nil {
		return models.Platform{}, false, err
	}
	for _, p := range all {
		if p.Name == name {
			return p, true, nil
		}
	}
	return models.Platform{}, false, nil
}

func (s *MemcachedStore) Put(ctx context.Context, p models.Platform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Set(&memcache.Item{Key: s.key(keyPrefix + p.ID), Value: raw}); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrUnavailable, p.ID, err)
	}
	ids, err := s.readIndex()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == p.ID {
			return nil
		}
	}
	return s.writeIndex(append(ids, p.ID))
}

func (s *MemcachedStore) Delete(ctx context.Context, id string) (models.Platform, bool, error) {
	p, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		return models.Platform{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Delete(s.key(keyPrefix + id)); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return models.Platform{}, false, fmt.Errorf("%w: delete %s: %w", ErrUnavailable, id, err)
	}
	ids, err := s.readIndex()
	if err != nil {
		return models.Platform{}, false, err
	}
	if err := s.writeIndex(removeID(ids, id)); err != nil {
		return models.Platform{}, false, err
	}
	return p, true, nil
}

func (s *MemcachedStore) readIndex() ([]string, error) {
	item, err := s.client.Get(s.key(indexKey))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get index: %w", ErrUnavailable, err)
	}
	var ids []string
	if err := json.Unmarshal(item.Value, &ids); err != nil {
		return nil, fmt.Errorf("%w: decode index: %w", ErrUnavailable, err)
	}
	return ids, nil
}

func (s *MemcachedStore) writeIndex(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := s.client.Set(&memcache.Item{Key: s.key(indexKey), Value: raw}); err != nil {
		return fmt.Errorf("%w: set index: %w", ErrUnavailable, err)
	}
	return nil
}

// Ping checks if memcached is reachable. Used by the readiness probe.
func (s *MemcachedStore) Ping() error {
	return s.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (s *MemcachedStore) Close() error {
	return s.client.Close()
}
