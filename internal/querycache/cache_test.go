package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notesKey(page int, search string) Key {
	return Key{Namespace: "notes", Page: page, Search: search, PerPage: 12}
}

type countingFetcher struct {
	calls atomic.Int32
	value func(key Key) string
}

func (f *countingFetcher) fetch(_ context.Context, key Key) (string, error) {
	f.calls.Add(1)
	if f.value != nil {
		return f.value(key), nil
	}
	return key.String(), nil
}

func TestKeyEquality(t *testing.T) {
	assert.Equal(t, notesKey(1, "cat"), notesKey(1, "cat"))
	assert.NotEqual(t, notesKey(1, "cat"), notesKey(2, "cat"))
	assert.NotEqual(t, notesKey(1, "cat"), notesKey(1, "cats"))
	assert.NotEqual(t, notesKey(1, "cat"), Key{Namespace: "notes", Page: 1, Search: "cat", PerPage: 24})
}

func TestFetchCachesPerKey(t *testing.T) {
	c := New[string]()
	f := &countingFetcher{}
	ctx := context.Background()

	v, err := c.Fetch(ctx, notesKey(1, ""), f.fetch)
	require.NoError(t, err)
	assert.Equal(t, notesKey(1, "").String(), v)

	// Repeated fetches of the same key are cache hits
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(ctx, notesKey(1, ""), f.fetch)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.calls.Load())

	_, err = c.Fetch(ctx, notesKey(2, ""), f.fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestInvalidateNamespaceForcesRefetch(t *testing.T) {
	c := New[string]()
	f := &countingFetcher{}
	ctx := context.Background()

	for _, k := range []Key{notesKey(1, ""), notesKey(2, "dog"), {Namespace: "tags", Page: 1}} {
		_, err := c.Fetch(ctx, k, f.fetch)
		require.NoError(t, err)
	}
	require.Equal(t, int32(3), f.calls.Load())

	assert.Equal(t, 2, c.InvalidateNamespace("notes"))

	e, ok := c.Get(notesKey(2, "dog"))
	require.True(t, ok, "invalidated entries stay readable")
	assert.True(t, e.Stale)

	other, ok := c.Get(Key{Namespace: "tags", Page: 1})
	require.True(t, ok)
	assert.False(t, other.Stale, "other namespaces are untouched")

	_, err := c.Fetch(ctx, notesKey(2, "dog"), f.fetch)
	require.NoError(t, err)
	_, err = c.Fetch(ctx, notesKey(1, ""), f.fetch)
	require.NoError(t, err)
	_, err = c.Fetch(ctx, Key{Namespace: "tags", Page: 1}, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(5), f.calls.Load())

	e, _ = c.Get(notesKey(2, "dog"))
	assert.False(t, e.Stale)
}

func TestInvalidateSingleKey(t *testing.T) {
	c := New[string]()
	c.Set(notesKey(1, ""), "one")
	c.Set(notesKey(2, ""), "two")

	assert.True(t, c.Invalidate(notesKey(1, "")))
	assert.False(t, c.Invalidate(notesKey(9, "")))

	e1, _ := c.Get(notesKey(1, ""))
	e2, _ := c.Get(notesKey(2, ""))
	assert.True(t, e1.Stale)
	assert.False(t, e2.Stale)
}

func TestInvalidationDuringFlightMarksResultStale(t *testing.T) {
	c := New[string]()
	ctx := context.Background()
	key := notesKey(2, "dog")

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	slow := func(ctx context.Context, key Key) (string, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
			return "before", nil
		}
		return "after", nil
	}

	done := make(chan string)
	go func() {
		v, _ := c.Fetch(ctx, key, slow)
		done <- v
	}()

	<-started
	c.InvalidateNamespace("notes")

	// A fetch issued after invalidation must not join the older flight
	v, err := c.Fetch(ctx, key, slow)
	require.NoError(t, err)
	assert.Equal(t, "after", v)

	close(release)
	assert.Equal(t, "before", <-done)

	e, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "after", e.Value, "an older load never replaces a newer one")
	assert.False(t, e.Stale)
}

func TestLoadStraddlingInvalidationIsStoredStale(t *testing.T) {
	c := New[string]()
	key := notesKey(1, "")

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Fetch(context.Background(), key, func(context.Context, Key) (string, error) {
			close(started)
			<-release
			return "pre-create", nil
		})
	}()

	<-started
	c.InvalidateNamespace("notes")
	close(release)
	<-done

	e, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "pre-create", e.Value)
	assert.True(t, e.Stale)
}

func TestConcurrentFetchesShareOneCall(t *testing.T) {
	c := New[string]()
	key := notesKey(1, "")

	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(ctx context.Context, key Key) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), key, fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestFailedFetchKeepsPreviousEntry(t *testing.T) {
	c := New[string]()
	key := notesKey(1, "")
	c.Set(key, "old")
	c.Invalidate(key)

	boom := errors.New("boom")
	_, err := c.Fetch(context.Background(), key, func(context.Context, Key) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	e, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "old", e.Value)
	assert.True(t, e.Stale)
}

func TestStaleTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	c := New[string](WithStaleTime(time.Minute), withClock(clock))
	f := &countingFetcher{}
	key := notesKey(1, "")

	_, err := c.Fetch(context.Background(), key, f.fetch)
	require.NoError(t, err)

	advance(30 * time.Second)
	_, err = c.Fetch(context.Background(), key, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())

	advance(31 * time.Second)
	e, _ := c.Get(key)
	assert.True(t, e.Stale)

	_, err = c.Fetch(context.Background(), key, f.fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestClear(t *testing.T) {
	c := New[string]()
	c.Set(notesKey(1, ""), "a")
	c.Set(notesKey(2, ""), "b")
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(notesKey(1, ""))
	assert.False(t, ok)
}
