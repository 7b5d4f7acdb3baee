package syncops

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSyncMapAddGet(t *testing.T) {
	m := NewSyncMap[int](4)
	m.Add("a", 1, 0)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("missing key found")
	}
	m.Add("a", 2, 0)
	if v, _ := m.Get("a"); v != 2 {
		t.Errorf("after second Add got %d", v)
	}
	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Error("deleted key still present")
	}
}

func TestSyncMapGetOrAdd(t *testing.T) {
	m := NewSyncMap[*int](4)
	created := 0
	create := func() *int {
		created++
		v := created
		return &v
	}

	first := m.GetOrAdd("ip", create, time.Hour)
	second := m.GetOrAdd("ip", create, time.Hour)
	if first != second || created != 1 {
		t.Errorf("GetOrAdd created %d values, want 1", created)
	}

	m.Add("old", create(), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if v := m.GetOrAdd("old", create, time.Hour); *v != 3 {
		t.Errorf("expired key not replaced, got %d", *v)
	}
}

func TestSyncMapGetOrAddConcurrent(t *testing.T) {
	m := NewSyncMap[*sync.Mutex](1)
	seen := make(chan *sync.Mutex, 50)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- m.GetOrAdd("ip", func() *sync.Mutex { return new(sync.Mutex) }, time.Minute)
		}()
	}
	wg.Wait()
	close(seen)

	first := <-seen
	for v := range seen {
		if v != first {
			t.Fatal("concurrent GetOrAdd returned different values")
		}
	}
}

func TestSyncMapExpiry(t *testing.T) {
	m := NewSyncMap[string](4)
	m.Add("short", "x", 20*time.Millisecond)
	m.Add("long", "y", time.Hour)
	m.Add("forever", "z", 0)

	time.Sleep(40 * time.Millisecond)

	if _, ok := m.Get("short"); ok {
		t.Error("expired key visible")
	}
	if m.Touch("short", time.Hour) {
		t.Error("Touch revived an expired key")
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d before cleanup, want 3", m.Len())
	}

	var removed []string
	n := m.DeleteExpired(func(key, _ string) { removed = append(removed, key) })
	if n != 1 || len(removed) != 1 || removed[0] != "short" {
		t.Errorf("DeleteExpired removed %v (%d)", removed, n)
	}
	_, longOK := m.Get("long")
	_, foreverOK := m.Get("forever")
	if !longOK || !foreverOK {
		t.Error("live keys removed")
	}
}

func TestSyncMapTouchExtends(t *testing.T) {
	m := NewSyncMap[int](1)
	m.Add("k", 1, 30*time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	if !m.Touch("k", time.Hour) {
		t.Fatal("Touch failed on live key")
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := m.Get("k"); !ok {
		t.Error("touched key expired")
	}
}

func TestSyncMapRange(t *testing.T) {
	m := NewSyncMap[int](8)
	for i := range 6 {
		if i%2 == 1 {
			m.Add(fmt.Sprint(i), i, 0)
		} else {
			m.Add(fmt.Sprint(i), i, time.Nanosecond)
		}
	}
	time.Sleep(time.Millisecond)

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	if sum != 1+3+5 {
		t.Errorf("sum of remaining = %d", sum)
	}

	calls := 0
	m.Range(func(string, int) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("Range did not stop, %d calls", calls)
	}
}

func TestSyncMapConcurrent(t *testing.T) {
	m := NewSyncMap[int](100)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprint(i % 10)
			m.Add(key, i, time.Minute)
			m.Get(key)
			m.Touch(key, time.Minute)
			if i%7 == 0 {
				m.Delete(key)
			}
			m.DeleteExpired(nil)
		}(i)
	}
	wg.Wait()
	if m.Len() > 10 {
		t.Errorf("Len() = %d, want at most 10", m.Len())
	}
}
