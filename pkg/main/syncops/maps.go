// Package syncops provides concurrency safe containers shared by request
// handlers and background jobs.
package syncops

import (
	"sync"
	"time"
)

// SyncMap is a string keyed map whose entries may expire. Expired entries
// are invisible to readers and removed by DeleteExpired.
type SyncMap[T any] struct {
	m       map[string]T
	expires map[string]int64
	mu      sync.RWMutex
}

// NewSyncMap creates a new SyncMap with the specified initial size.
func NewSyncMap[T any](size int) *SyncMap[T] {
	return &SyncMap[T]{
		m:       make(map[string]T, size),
		expires: make(map[string]int64, size),
	}
}

// Add stores value under key. A ttl of 0 never expires.
func (s *SyncMap[T]) Add(key string, value T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	s.expires[key] = expiry(ttl)
}

// GetOrAdd returns the live value of key, or stores the result of create
// with ttl and returns it. create runs under the write lock.
func (s *SyncMap[T]) GetOrAdd(key string, create func() T, ttl time.Duration) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if val, ok := s.m[key]; ok && !s.expiredLocked(key, time.Now().UnixNano()) {
		return val
	}
	val := create()
	s.m[key] = val
	s.expires[key] = expiry(ttl)
	return val
}

// Touch moves the expiration of a live key to now+ttl.
func (s *SyncMap[T]) Touch(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok || s.expiredLocked(key, time.Now().UnixNano()) {
		return false
	}
	s.expires[key] = expiry(ttl)
	return true
}

// Delete removes a key.
func (s *SyncMap[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delete(key)
}

// delete assumes the caller holds the write lock.
func (s *SyncMap[T]) delete(key string) {
	delete(s.m, key)
	delete(s.expires, key)
}

// Get returns the value of a live key.
func (s *SyncMap[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.m[key]
	if !ok || s.expiredLocked(key, time.Now().UnixNano()) {
		var zero T
		return zero, false
	}
	return val, true
}

// Len returns the number of stored entries, expired ones included.
func (s *SyncMap[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// DeleteExpired removes every expired entry, calling fnVal with each removed
// value when it is not nil, and returns how many were removed.
func (s *SyncMap[T]) DeleteExpired(fnVal func(string, T)) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	var n int
	for key := range s.m {
		if !s.expiredLocked(key, now) {
			continue
		}
		if fnVal != nil {
			fnVal(key, s.m[key])
		}
		s.delete(key)
		n++
	}
	return n
}

// Range calls fn for each live entry until fn returns false. fn must not
// modify the map.
func (s *SyncMap[T]) Range(fn func(string, T) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now().UnixNano()
	for key, value := range s.m {
		if s.expiredLocked(key, now) {
			continue
		}
		if !fn(key, value) {
			return
		}
	}
}

func (s *SyncMap[T]) expiredLocked(key string, now int64) bool {
	exp := s.expires[key]
	return exp != 0 && now >= exp
}

func expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return time.Now().Add(ttl).UnixNano()
}
