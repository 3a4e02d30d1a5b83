package loader

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(fetches *[][]uint, mu *sync.Mutex) *Loader[uint, *string] {
	return New(Config[uint, *string]{
		Wait:     10 * time.Millisecond,
		MaxBatch: 5,
		Fetch: func(keys []uint) ([]*string, error) {
			mu.Lock()
			*fetches = append(*fetches, keys)
			mu.Unlock()

			out := make([]*string, len(keys))
			for i, k := range keys {
				if k == 404 {
					continue // absent key stays nil
				}
				s := string(rune('a' + k))
				out[i] = &s
			}
			return out, nil
		},
	})
}

func TestLoaderBatchesConcurrentLoads(t *testing.T) {
	var fetches [][]uint
	var mu sync.Mutex
	l := newTestLoader(&fetches, &mu)

	var wg sync.WaitGroup
	results := make([]*string, 3)
	for i := uint(0); i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Load(i)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fetches, 1, "three loads within the wait window should share one fetch")
	assert.Len(t, fetches[0], 3)
	for i := uint(0); i < 3; i++ {
		require.NotNil(t, results[i])
		assert.Equal(t, string(rune('a'+i)), *results[i])
	}
}

func TestLoaderThunksPreserveOrderAndDedupe(t *testing.T) {
	var fetches [][]uint
	var mu sync.Mutex
	l := newTestLoader(&fetches, &mu)

	keys := []uint{3, 1, 3, 2, 1}
	values, err := l.LoadAll(keys)
	require.NoError(t, err)
	require.Len(t, values, len(keys))

	// Results align with the requested key order, duplicates included.
	for i, k := range keys {
		require.NotNil(t, values[i])
		assert.Equal(t, string(rune('a'+k)), *values[i])
	}

	// The underlying fetch saw each distinct key once.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fetches, 1)
	assert.Equal(t, []uint{3, 1, 2}, fetches[0])
}

func TestLoaderAbsentKeyIsNilNotError(t *testing.T) {
	var fetches [][]uint
	var mu sync.Mutex
	l := newTestLoader(&fetches, &mu)

	v, err := l.Load(404)
	assert.NoError(t, err)
	assert.Nil(t, v)

	// The miss is cached too; no second fetch.
	v, err = l.Load(404)
	assert.NoError(t, err)
	assert.Nil(t, v)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, fetches, 1)
}

func TestLoaderCachesWithinInstance(t *testing.T) {
	var fetches [][]uint
	var mu sync.Mutex
	l := newTestLoader(&fetches, &mu)

	first, err := l.Load(1)
	require.NoError(t, err)
	second, err := l.Load(1)
	require.NoError(t, err)
	assert.Same(t, first, second)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, fetches, 1)
}

func TestLoaderCacheDoesNotCrossInstances(t *testing.T) {
	var fetches [][]uint
	var mu sync.Mutex

	a := newTestLoader(&fetches, &mu)
	b := newTestLoader(&fetches, &mu)

	_, err := a.Load(1)
	require.NoError(t, err)
	_, err = b.Load(1)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, fetches, 2, "each loader instance fetches independently")
}

func TestLoaderMaxBatchSplitsFetches(t *testing.T) {
	var fetches [][]uint
	var mu sync.Mutex
	l := newTestLoader(&fetches, &mu)

	keys := make([]uint, 7) // maxBatch is 5
	for i := range keys {
		keys[i] = uint(i)
	}
	_, err := l.LoadAll(keys)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fetches, 2)
	assert.Len(t, fetches[0], 5)
	assert.Len(t, fetches[1], 2)
}

func TestLoaderPrimeSkipsFetch(t *testing.T) {
	var calls atomic.Int32
	l := New(Config[uint, *string]{
		Wait: time.Millisecond,
		Fetch: func(keys []uint) ([]*string, error) {
			calls.Add(1)
			return make([]*string, len(keys)), nil
		},
	})

	v := "primed"
	l.Prime(9, &v)

	got, err := l.Load(9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "primed", *got)
	assert.Zero(t, calls.Load())
}

func TestLoaderFetchErrorPropagates(t *testing.T) {
	wantErr := errors.New("db down")
	l := New(Config[uint, *string]{
		Wait: time.Millisecond,
		Fetch: func(keys []uint) ([]*string, error) {
			return nil, wantErr
		},
	})

	_, err := l.Load(1)
	assert.ErrorIs(t, err, wantErr)
}
