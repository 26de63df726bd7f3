package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"groovyls/internal/compileresult"
	"groovyls/internal/groovyast"
	"groovyls/internal/phase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func successEntry(fp uint64, reached phase.Phase) Entry {
	ast := &groovyast.File{LogicalName: "X"}
	return Entry{
		Fingerprint: fp,
		Reached:     reached,
		Result:      compileresult.NewSuccess(ast, nil),
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	c := New(DefaultTTL, DefaultCapacity)
	c.Put("A", successEntry(1, phase.Conversion))

	entry, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, uint64(1), entry.Fingerprint)
	assert.True(t, entry.Satisfies(1, phase.Conversion))
	assert.False(t, entry.Satisfies(2, phase.Conversion), "different fingerprint must not satisfy")
	assert.False(t, entry.Satisfies(1, phase.SemanticAnalysis), "deeper phase than cached must not satisfy")
}

func TestGetMissingKey(t *testing.T) {
	c := New(DefaultTTL, DefaultCapacity)
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c := New(DefaultTTL, DefaultCapacity)
	c.Put("A", successEntry(1, phase.Conversion))
	c.Invalidate("A")
	_, ok := c.Get("A")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := New(DefaultTTL, DefaultCapacity)
	c.Put("A", successEntry(1, phase.Conversion))
	c.Put("B", successEntry(2, phase.Conversion))
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestTTLExpiry(t *testing.T) {
	c := New(10*time.Millisecond, DefaultCapacity)
	c.Put("A", successEntry(1, phase.Conversion))

	_, ok := c.Get("A")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = c.Get("A")
	assert.False(t, ok, "entry older than TTL must not be returned")
	assert.Equal(t, 0, c.Size(), "expired entry is removed on the get that discovers it")
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(DefaultTTL, 3)
	c.Put("Test0", successEntry(0, phase.Conversion))
	c.Put("Test1", successEntry(1, phase.Conversion))
	c.Put("Test2", successEntry(2, phase.Conversion))
	c.Put("Test3", successEntry(3, phase.Conversion))

	assert.Equal(t, 3, c.Size())

	_, ok := c.Get("Test0")
	assert.False(t, ok, "Test0 was least-recently-used and must have been evicted")

	for _, name := range []string{"Test1", "Test2", "Test3"} {
		_, ok := c.Get(name)
		assert.True(t, ok, "%s must still be cached", name)
	}
}

func TestCapacityBoundAfterGetTouchesRecency(t *testing.T) {
	c := New(DefaultTTL, 2)
	c.Put("A", successEntry(1, phase.Conversion))
	c.Put("B", successEntry(2, phase.Conversion))
	c.Get("A") // A is now most-recently-used; B is least-recently-used
	c.Put("C", successEntry(3, phase.Conversion))

	_, ok := c.Get("B")
	assert.False(t, ok, "B must be evicted, not A")
	_, ok = c.Get("A")
	assert.True(t, ok)
}

func TestConcurrentPutsSameKeyObserveConsistentTriple(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(DefaultTTL, DefaultCapacity)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Put("A", successEntry(uint64(n), phase.Conversion))
		}(i)
	}
	wg.Wait()

	entry, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, 1, c.Size())
	_ = entry // exactly one fingerprint wins; which one is racy by design
}

func TestSizeNeverExceedsCapacityUnderConcurrentInserts(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New(DefaultTTL, 10)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := string(rune('A' + n%26))
			c.Put(name, successEntry(uint64(n), phase.Conversion))
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 10)
}
