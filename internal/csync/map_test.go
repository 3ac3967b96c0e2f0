package csync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapSetGetDel(t *testing.T) {
	m := NewMap[string, int]()
	require.Equal(t, 0, m.Len())

	m.Set("a", 1)
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	m.Del("a")
	_, ok = m.Get("a")
	require.False(t, ok)
}

func TestMapTake(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("a", 1)

	v, ok := m.Take("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = m.Take("a")
	require.False(t, ok)
}

func TestMapSeq(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	seen := map[string]int{}
	for k, v := range m.Seq2() {
		seen[k] = v
	}
	require.Equal(t, map[string]int{"a": 1, "b": 2}, seen)

	total := 0
	for v := range m.Seq() {
		total += v
	}
	require.Equal(t, 3, total)
}

func TestMapConcurrentAccess(t *testing.T) {
	m := NewMap[int, int]()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Set(i, i)
			m.Get(i)
		}()
	}
	wg.Wait()
	require.Equal(t, 100, m.Len())
}
