package machine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func internFor(t *testing.T) func(string) *ObjString {
	t.Helper()
	th := NewThread(nil)
	return th.internString
}

func TestInternEqualBytesYieldSameHandle(t *testing.T) {
	intern := internFor(t)
	a := intern("hello")
	b := intern("hel" + "lo")
	require.Same(t, a, b)
}

func TestInternDistinctBytesYieldDistinctHandles(t *testing.T) {
	intern := internFor(t)
	a := intern("hello")
	b := intern("world")
	require.NotSame(t, a, b)
}

func TestTableSetGetDelete(t *testing.T) {
	var tbl table
	intern := internFor(t)
	k := intern("key")

	_, ok := tbl.get(k)
	require.False(t, ok)

	isNew := tbl.set(k, Number(1))
	require.True(t, isNew)

	v, ok := tbl.get(k)
	require.True(t, ok)
	require.Equal(t, Number(1), v)

	isNew = tbl.set(k, Number(2))
	require.False(t, isNew)

	require.True(t, tbl.delete(k))
	_, ok = tbl.get(k)
	require.False(t, ok)
}

// TestTableSurvivesTombstoneProbeChains exercises the probe-termination
// invariant from spec.md §8: deleting an entry must not break lookups for
// a different key that happens to probe through the deleted slot.
func TestTableSurvivesTombstoneProbeChains(t *testing.T) {
	var tbl table
	intern := internFor(t)

	keys := make([]*ObjString, 0, 20)
	for i := 0; i < 20; i++ {
		k := intern(string(rune('a' + i)))
		keys = append(keys, k)
		tbl.set(k, Number(float64(i)))
	}

	// delete every other entry, leaving tombstones interleaved with survivors
	for i := 0; i < len(keys); i += 2 {
		require.True(t, tbl.delete(keys[i]))
	}

	for i := 1; i < len(keys); i += 2 {
		v, ok := tbl.get(keys[i])
		require.True(t, ok, "key %d should survive deletions of its neighbors", i)
		require.Equal(t, Number(float64(i)), v)
	}
}

func TestFindStringComparesByContentNotHandle(t *testing.T) {
	var tbl table
	s := &ObjString{chars: "shared", hash: fnv1a("shared")}
	tbl.set(s, tombstone)

	found := tbl.findString("shared", fnv1a("shared"))
	require.Same(t, s, found)

	require.Nil(t, tbl.findString("different", fnv1a("different")))
}

func TestGrowPreservesAllLiveEntries(t *testing.T) {
	var tbl table
	intern := internFor(t)
	keys := make([]*ObjString, 0, 100)
	for i := 0; i < 100; i++ {
		k := intern(string(rune('A' + i%26)) + string(rune('0'+i/26)))
		keys = append(keys, k)
		tbl.set(k, Number(float64(i)))
	}
	require.GreaterOrEqual(t, len(tbl.entries), tbl.count)
	for i, k := range keys {
		v, ok := tbl.get(k)
		require.True(t, ok, "key %d should survive growth", i)
		require.Equal(t, Number(float64(i)), v)
	}
}
