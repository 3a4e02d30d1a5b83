// Package loader provides request-scoped, deduplicating batch loaders used to
// collapse per-row lookups on feed pages into single bulk fetches.
package loader

import (
	"sync"
	"time"
)

// Config configures a Loader.
type Config[K comparable, V any] struct {
	// Fetch resolves a batch of distinct keys. The returned slice must align
	// with keys; an absent key resolves to the zero V (nil for pointers).
	Fetch func(keys []K) ([]V, error)
	// Wait is how long to collect keys before dispatching a batch.
	Wait time.Duration
	// MaxBatch caps keys per batch; 0 means unbounded.
	MaxBatch int
}

// New creates a Loader from the given config.
func New[K comparable, V any](cfg Config[K, V]) *Loader[K, V] {
	return &Loader[K, V]{
		fetch:    cfg.Fetch,
		wait:     cfg.Wait,
		maxBatch: cfg.MaxBatch,
	}
}

// Loader batches and caches lookups within a single request's lifetime. It
// must not be shared across requests: the cache is never invalidated, which
// is only safe because the loader dies with the request that created it.
type Loader[K comparable, V any] struct {
	fetch    func(keys []K) ([]V, error)
	wait     time.Duration
	maxBatch int

	mu    sync.Mutex
	cache map[K]V
	batch *batch[K, V]
}

type batch[K comparable, V any] struct {
	keys    []K
	data    []V
	err     error
	closing bool
	done    chan struct{}
}

// Load fetches the value for key, blocking until the containing batch
// resolves. Equivalent to LoadThunk(key)().
func (l *Loader[K, V]) Load(key K) (V, error) {
	return l.LoadThunk(key)()
}

// LoadThunk registers key in the current batch and returns a function that
// blocks for the result. Issuing all thunks before resolving any of them
// guarantees a page's lookups land in one batch regardless of Wait.
func (l *Loader[K, V]) LoadThunk(key K) func() (V, error) {
	l.mu.Lock()
	if v, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return func() (V, error) { return v, nil }
	}
	if l.batch == nil {
		l.batch = &batch[K, V]{done: make(chan struct{})}
	}
	b := l.batch
	pos := b.keyIndex(l, key)
	l.mu.Unlock()

	return func() (V, error) {
		<-b.done

		var v V
		if pos < len(b.data) {
			v = b.data[pos]
		}
		if b.err != nil {
			return v, b.err
		}

		l.mu.Lock()
		l.unsafePrime(key, v)
		l.mu.Unlock()
		return v, nil
	}
}

// LoadAll fetches values for all keys, preserving the call order of keys in
// the returned slice. Duplicate keys resolve to the same value.
func (l *Loader[K, V]) LoadAll(keys []K) ([]V, error) {
	thunks := make([]func() (V, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(key)
	}

	values := make([]V, len(keys))
	var firstErr error
	for i, thunk := range thunks {
		v, err := thunk()
		values[i] = v
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return values, firstErr
}

// Prime seeds the cache with a known value, e.g. an entity already loaded by
// the surrounding handler.
func (l *Loader[K, V]) Prime(key K, value V) {
	l.mu.Lock()
	l.unsafePrime(key, value)
	l.mu.Unlock()
}

func (l *Loader[K, V]) unsafePrime(key K, value V) {
	if l.cache == nil {
		l.cache = map[K]V{}
	}
	l.cache[key] = value
}

// keyIndex returns the position of key within the batch, registering it (and
// scheduling the batch) on first sight. Duplicate keys within one batch share
// a position, so each underlying key is fetched once.
func (b *batch[K, V]) keyIndex(l *Loader[K, V], key K) int {
	for i, existing := range b.keys {
		if existing == key {
			return i
		}
	}

	pos := len(b.keys)
	b.keys = append(b.keys, key)
	if pos == 0 {
		go b.startTimer(l)
	}

	if l.maxBatch != 0 && pos >= l.maxBatch-1 && !b.closing {
		b.closing = true
		l.batch = nil
		go b.end(l)
	}

	return pos
}

func (b *batch[K, V]) startTimer(l *Loader[K, V]) {
	time.Sleep(l.wait)
	l.mu.Lock()

	// A full batch already dispatched itself.
	if b.closing {
		l.mu.Unlock()
		return
	}

	l.batch = nil
	l.mu.Unlock()
	b.end(l)
}

func (b *batch[K, V]) end(l *Loader[K, V]) {
	b.data, b.err = l.fetch(b.keys)
	close(b.done)
}
