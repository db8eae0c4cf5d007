package cache

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/graphbind-io/graphbind/pkg/errors"
	"github.com/graphbind-io/graphbind/pkg/operation"
)

// Cache stores resolved query results keyed by operation + variables.
// ristretto bounds the resident set; a tracked key index makes the cache
// snapshotable for server-side rendering handoff.
type Cache struct {
	store *ristretto.Cache[string, []byte]

	mu   sync.Mutex
	keys map[string]struct{}
}

// New creates a result cache. maxEntries sizes the admission counters,
// maxCost bounds total bytes of cached result data.
func New(maxEntries, maxCost int64) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	if maxCost <= 0 {
		maxCost = 64 << 20
	}

	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "create result cache")
	}

	return &Cache{
		store: store,
		keys:  make(map[string]struct{}),
	}, nil
}

// Key derives the cache key for an operation and its resolved variables.
// encoding/json sorts map keys, so the variable encoding is canonical.
func Key(desc *operation.Descriptor, vars map[string]interface{}) string {
	if len(vars) == 0 {
		return desc.Source()
	}
	encoded, err := json.Marshal(vars)
	if err != nil {
		// unencodable variables still need a distinct key
		encoded = []byte(fmt.Sprintf("%v", vars))
	}
	return desc.Source() + "\x00" + string(encoded)
}

// Get returns the cached data payload for key, if resident
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	data, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	return json.RawMessage(data), true
}

// Has reports whether key is resident
func (c *Cache) Has(key string) bool {
	_, ok := c.store.Get(key)
	return ok
}

// Set stores a data payload. Writes are synchronous: a Get immediately
// after Set observes the entry.
func (c *Cache) Set(key string, data json.RawMessage) {
	c.store.Set(key, data, int64(len(data)))
	c.store.Wait()

	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
}

// Delete removes an entry
func (c *Cache) Delete(key string) {
	c.store.Del(key)
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
}

// Snapshot returns every still-resident entry. Entries evicted by ristretto
// since their write are silently absent.
func (c *Cache) Snapshot() map[string]json.RawMessage {
	c.mu.Lock()
	keys := make([]string, 0, len(c.keys))
	for k := range c.keys {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	snap := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if data, ok := c.store.Get(k); ok {
			snap[k] = json.RawMessage(data)
		}
	}
	return snap
}

// MarshalSnapshot serializes the current snapshot to JSON
func (c *Cache) MarshalSnapshot() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}

// Restore loads a snapshot into the cache. Existing entries with the same
// keys are overwritten.
func (c *Cache) Restore(snapshot map[string]json.RawMessage) {
	for k, v := range snapshot {
		c.Set(k, v)
	}
}

// RestoreJSON loads a serialized snapshot produced by MarshalSnapshot
func (c *Cache) RestoreJSON(data []byte) error {
	var snapshot map[string]json.RawMessage
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return errors.WrapError(err, errors.ErrValidation, "decode cache snapshot")
	}
	c.Restore(snapshot)
	return nil
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.store.Clear()
	c.mu.Lock()
	c.keys = make(map[string]struct{})
	c.mu.Unlock()
}

// Close releases the underlying store's resources
func (c *Cache) Close() {
	c.store.Close()
}
