package blackboard

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	bb := New()

	_, ok := bb.Get("missing")
	assert.False(t, ok)

	bb.Set("target", "oak")
	v, ok := bb.Get("target")
	require.True(t, ok)
	assert.Equal(t, "oak", v)

	assert.True(t, bb.Delete("target"))
	assert.False(t, bb.Delete("target"), "second delete reports absence")
	_, ok = bb.Get("target")
	assert.False(t, ok)
}

func TestTypedGetters(t *testing.T) {
	bb := New()
	bb.Set("name", "miner")
	bb.Set("count", 7)
	bb.Set("wide", int64(9))
	bb.Set("ratio", 0.5)
	bb.Set("busy", true)

	s, ok := bb.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "miner", s)

	n, ok := bb.GetInt("count")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = bb.GetInt("wide")
	assert.True(t, ok)
	assert.Equal(t, 9, n)

	f, ok := bb.GetFloat("ratio")
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)

	f, ok = bb.GetFloat("count")
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	b, ok := bb.GetBool("busy")
	assert.True(t, ok)
	assert.True(t, b)

	// Wrong type: present but not convertible.
	_, ok = bb.GetInt("name")
	assert.False(t, ok)
	_, ok = bb.GetBool("count")
	assert.False(t, ok)
}

func TestNumbersSurviveJSONRoundTrip(t *testing.T) {
	bb := New()
	bb.Set("count", 42)
	bb.Set("busy", false)

	data, err := bb.ToJSON()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.FromJSON(data))

	// JSON turns ints into float64; GetInt must still resolve them.
	n, ok := restored.GetInt("count")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	b, ok := restored.GetBool("busy")
	assert.True(t, ok)
	assert.False(t, b)
}

func TestFromJSONRejectsGarbage(t *testing.T) {
	bb := New()
	assert.Error(t, bb.FromJSON([]byte("not json")))
}

func TestKeysLenAndSnapshotSpanShards(t *testing.T) {
	bb := New()
	for i := 0; i < 100; i++ {
		bb.Set(fmt.Sprintf("key-%d", i), i)
	}

	assert.Equal(t, 100, bb.Len())
	assert.Len(t, bb.Keys(), 100)

	snap := bb.Snapshot()
	assert.Len(t, snap, 100)
	assert.Equal(t, 37, snap["key-37"])

	// Snapshot is a copy, not a view.
	snap["key-37"] = -1
	v, _ := bb.GetInt("key-37")
	assert.Equal(t, 37, v)
}

func TestVersionAdvancesOnEveryWrite(t *testing.T) {
	bb := New()
	require.Zero(t, bb.Version())

	bb.Set("a", 1)
	bb.Set("a", 2)
	after := bb.Version()
	assert.Equal(t, int64(2), after)

	bb.Delete("a")
	assert.Equal(t, after+1, bb.Version())

	bb.Delete("a") // no-op delete leaves the counter alone
	assert.Equal(t, after+1, bb.Version())
}

func TestLastUpdated(t *testing.T) {
	bb := New()
	_, ok := bb.LastUpdated("pos")
	assert.False(t, ok)

	before := time.Now()
	bb.Set("pos", [2]int{3, 4})
	ts, ok := bb.LastUpdated("pos")
	require.True(t, ok)
	assert.False(t, ts.Before(before))
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	bb := New()
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				bb.Set(fmt.Sprintf("w%d-%d", w, i%10), i)
			}
		}(w)
	}
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				bb.Get(fmt.Sprintf("w%d-%d", r, i%10))
				bb.Len()
			}
		}(r)
	}
	wg.Wait()

	assert.Equal(t, 80, bb.Len())
	assert.GreaterOrEqual(t, bb.Version(), int64(80))
}
