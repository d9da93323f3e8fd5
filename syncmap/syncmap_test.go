package syncmap_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/szeged/jerrybot/syncmap"
)

func TestLoadOrNew(t *testing.T) {
	m := syncmap.New[string, *int]()
	var made atomic.Int32
	mk := func() *int {
		made.Add(1)
		return new(int)
	}
	const goroutines = 64
	got := make([]*int, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _ = m.LoadOrNew("#jerryscript", mk)
		}()
	}
	wg.Wait()
	if n := made.Load(); n != 1 {
		t.Errorf("constructor called %d times", n)
	}
	for i, p := range got {
		if p != got[0] {
			t.Errorf("goroutine %d got a different value", i)
		}
	}
	if _, loaded := m.LoadOrNew("#jerryscript", mk); !loaded {
		t.Error("existing value not loaded")
	}
	if v, ok := m.Load("#jerryscript"); !ok || v != got[0] {
		t.Errorf("wrong loaded value: %p %t", v, ok)
	}
	if _, ok := m.Load("#other"); ok {
		t.Error("loaded missing key")
	}
}

func TestAll(t *testing.T) {
	m := syncmap.New[string, int]()
	if m.Len() != 0 {
		t.Errorf("new map has %d elements", m.Len())
	}
	for i, k := range []string{"a", "b", "c"} {
		m.LoadOrNew(k, func() int { return i })
	}
	if m.Len() != 3 {
		t.Errorf("wrong length: want 3, got %d", m.Len())
	}
	seen := make(map[string]int)
	for k, v := range m.All() {
		// Mutating during iteration must not deadlock.
		m.LoadOrNew(k+k, func() int { return -1 })
		seen[k] = v
	}
	want := map[string]int{"a": 0, "b": 1, "c": 2}
	for k, v := range want {
		if seen[k] != v {
			t.Errorf("wrong value for %q: want %d, got %d", k, v, seen[k])
		}
	}
	n := 0
	for range m.All() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iteration didn't stop: %d", n)
	}
}
