package dataset

import (
	"math/rand"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"perceptron/ml"
)

const DefaultCacheSize = 4

type cacheKey struct {
	config SyntheticConfig
	seed   int64
}

type cacheEntry struct {
	dataset ml.Dataset
	truth   Hyperplane
}

// Cache keeps recently generated synthetic datasets keyed by config and seed.
// Cached datasets are shared between callers and must be treated as read-only.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[cacheKey, cacheEntry]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Generate returns the cached dataset for (cfg, seed) or generates and stores it.
func (c *Cache) Generate(cfg SyntheticConfig, seed int64) (ml.Dataset, Hyperplane, bool, error) {
	key := cacheKey{config: cfg, seed: seed}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries.Get(key); ok {
		return entry.dataset, entry.truth, true, nil
	}
	ds, truth, err := Generate(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return ml.Dataset{}, Hyperplane{}, false, err
	}
	c.entries.Add(key, cacheEntry{dataset: ds, truth: truth})
	return ds, truth, false, nil
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
