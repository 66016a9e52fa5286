package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) commit(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestOnlyLastValueCommits(t *testing.T) {
	rec := &recorder{}
	d := New(40*time.Millisecond, rec.commit)

	d.Push("c")
	d.Push("ca")
	d.Push("cat")
	time.Sleep(10 * time.Millisecond)
	d.Push("cats")

	value, deadline, ok := d.Pending()
	require.True(t, ok)
	assert.Equal(t, "cats", value)
	assert.True(t, deadline.After(time.Now()))
	assert.Equal(t, Pending, d.State())

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"cats"}, rec.snapshot())
	assert.Equal(t, Idle, d.State())

	// No late second commit
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"cats"}, rec.snapshot())
}

func TestEditsSpacedBeyondDelayEachCommit(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.commit)

	d.Push("dog")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	d.Push("dogs")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"dog", "dogs"}, rec.snapshot())
}

func TestCommitWaitsForQuietPeriod(t *testing.T) {
	rec := &recorder{}
	d := New(60*time.Millisecond, rec.commit)

	start := time.Now()
	d.Push("a")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 2*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestFlushCommitsImmediately(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, rec.commit)

	assert.False(t, d.Flush(), "nothing pending")

	d.Push("now")
	assert.True(t, d.Flush())
	assert.Equal(t, []string{"now"}, rec.snapshot())
	assert.Equal(t, Idle, d.State())
}

func TestCancelDropsPendingValue(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.commit)

	d.Push("never")
	d.Cancel()

	_, _, ok := d.Pending()
	assert.False(t, ok)

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending", Pending.String())
}
