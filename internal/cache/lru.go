package cache

import (
	"container/list"
	"sync"
	"time"
)

// Options configures an LRUCache.
type Options[T any] struct {
	MaxSize int
	TTL     time.Duration
	// Sliding refreshes an entry's expiry on every Get.
	Sliding bool
	// OnEvict is called, outside the lock, for entries dropped by capacity
	// or expiry. Explicit Delete does not call it.
	OnEvict func(key string, data T)
}

// LRUCache is a size-bounded cache whose entries also expire after a TTL.
type LRUCache[T any] struct {
	mu    sync.Mutex
	opts  Options[T]
	items map[string]*list.Element
	lru   *list.List
	now   func() time.Time
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

var _ Cache[int] = (*LRUCache[int])(nil)

// NewLRUCache creates a cache with absolute expiry.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	return New(Options[T]{MaxSize: maxSize, TTL: ttl})
}

func New[T any](opts Options[T]) *LRUCache[T] {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1
	}
	return &LRUCache[T]{
		opts:  opts,
		items: make(map[string]*list.Element),
		lru:   list.New(),
		now:   time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}
	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		evicted = append(evicted, item)
		return zero, false
	}
	if c.opts.Sliding {
		item.expiresAt = c.now().Add(c.opts.TTL)
	}
	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *LRUCache[T]) Set(key string, data T) {
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()
	evicted = c.set(key, data)
}

// GetOrCreate returns the live entry for key, or stores and returns the
// result of create. create runs under the cache lock and must not call back
// into the cache.
func (c *LRUCache[T]) GetOrCreate(key string, create func() T) (T, bool) {
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*cacheItem[T])
		if !c.now().After(item.expiresAt) {
			if c.opts.Sliding {
				item.expiresAt = c.now().Add(c.opts.TTL)
			}
			c.lru.MoveToFront(elem)
			return item.data, true
		}
		c.removeElement(elem)
		evicted = append(evicted, item)
	}
	data := create()
	evicted = append(evicted, c.set(key, data)...)
	return data, false
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// CleanExpired removes all expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	var evicted []*cacheItem[T]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			c.removeElement(elem)
			evicted = append(evicted, item)
		}
		elem = prev
	}
	return len(evicted)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// set must be called with c.mu held. It returns the entry evicted for
// capacity, if any.
func (c *LRUCache[T]) set(key string, data T) []*cacheItem[T] {
	item := &cacheItem[T]{key: key, data: data, expiresAt: c.now().Add(c.opts.TTL)}
	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return nil
	}
	c.items[key] = c.lru.PushFront(item)

	if c.lru.Len() > c.opts.MaxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
			return []*cacheItem[T]{oldest.Value.(*cacheItem[T])}
		}
	}
	return nil
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

func (c *LRUCache[T]) notify(items []*cacheItem[T]) {
	if c.opts.OnEvict == nil {
		return
	}
	for _, it := range items {
		c.opts.OnEvict(it.key, it.data)
	}
}
