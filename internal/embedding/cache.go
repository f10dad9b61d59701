package embedding

import (
	"container/list"
	"context"
	"sync"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CachedEmbedder serves repeated texts from an LRU cache and delegates misses.
type CachedEmbedder struct {
	Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps inner with a cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{Embedder: inner, cache: NewEmbeddingCache(capacity)}
}

// Embed returns the cached embedding for text or computes and stores it.
// Cached slices are shared; callers must not modify them.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		return cached, nil
	}
	emb, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, c.Embed)
}
