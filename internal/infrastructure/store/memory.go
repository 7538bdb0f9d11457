// Package store provides the durable key-value backends of the comparison state
package store

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/unicatalog/backend/internal/domain"
)

const cleanupInterval = 10 * time.Minute

// memoryItem is a stored value with an optional expiration
type memoryItem struct {
	value      []byte
	expiration time.Time // zero never expires
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// MemoryStore is a thread-safe in-memory state store with TTL support.
// State is lost on restart.
type MemoryStore struct {
	data  map[string]memoryItem
	mutex sync.RWMutex
	done  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a memory store and starts its expiry sweeper
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]memoryItem),
		done: make(chan struct{}),
	}

	go s.cleanupExpired()

	return s
}

// Get retrieves a value, ErrStateNotFound when absent or expired
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.data[key]
	if !exists || item.expired(time.Now()) {
		return nil, domain.ErrStateNotFound
	}

	return bytes.Clone(item.value), nil
}

// Set stores a copy of value. A zero ttl never expires.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item := memoryItem{value: bytes.Clone(value)}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}
	s.data[key] = item

	return nil
}

// Delete removes a key; deleting a missing key is not an error
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, key)
	return nil
}

// Exists checks if a key is present and not expired
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.data[key]
	return exists && !item.expired(time.Now()), nil
}

// Len returns the number of stored keys, expired ones included until swept
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Close stops the expiry sweeper
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep(time.Now())
		}
	}
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for key, item := range s.data {
		if item.expired(now) {
			delete(s.data, key)
		}
	}
}
