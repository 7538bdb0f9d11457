package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/unicatalog/backend/internal/domain"
)

func TestMemoryStore_SetAndGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value []byte
		ttl   time.Duration
	}{
		{
			name:  "store and retrieve without expiry",
			key:   "comparedPrograms",
			value: []byte(`[{"id":1}]`),
			ttl:   0,
		},
		{
			name:  "store and retrieve with ttl",
			key:   "programsDataCache:main",
			value: []byte(`[]`),
			ttl:   time.Minute,
		},
		{
			name:  "store with short TTL",
			key:   "short",
			value: []byte("expires-soon"),
			ttl:   time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			if tt.ttl > 0 && tt.ttl < 10*time.Millisecond {
				time.Sleep(10 * time.Millisecond)
				_, err := s.Get(ctx, tt.key)
				if !errors.Is(err, domain.ErrStateNotFound) {
					t.Errorf("Expected not found after expiration, got error = %v", err)
				}
				return
			}

			got, err := s.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != string(tt.value) {
				t.Errorf("Get() = %s, want %s", got, tt.value)
			}
		})
	}
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	value := []byte("abc")
	if err := s.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'x'

	got, _ := s.Get(ctx, "k")
	got[1] = 'y'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %s", again)
	}
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.Get(context.Background(), "non-existent-key")
	if !errors.Is(err, domain.ErrStateNotFound) {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrStateNotFound)
	}
}

func TestMemoryStore_DeleteAndExists(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	exists, err := s.Exists(ctx, "compareQueue")
	if err != nil || exists {
		t.Fatalf("Exists() = %v, %v, want false, nil", exists, err)
	}

	if err := s.Set(ctx, "compareQueue", []byte("[]"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if exists, _ := s.Exists(ctx, "compareQueue"); !exists {
		t.Errorf("Exists() = false, want true after setting value")
	}

	if err := s.Delete(ctx, "compareQueue"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if exists, _ := s.Exists(ctx, "compareQueue"); exists {
		t.Errorf("Exists() = true, want false after delete")
	}
	if err := s.Delete(ctx, "compareQueue"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	_ = s.Set(ctx, "keep", []byte("1"), 0)
	_ = s.Set(ctx, "drop", []byte("2"), time.Millisecond)

	s.sweep(time.Now().Add(time.Second))

	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 after sweep", got)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := fmt.Sprintf("session-%d:comparedPrograms", id)
			if err := s.Set(ctx, key, []byte("[]"), 0); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := s.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Type: TypeMemory})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	s.Close()

	if _, err := Open(ctx, Options{Type: "etcd"}); err == nil {
		t.Error("Open(etcd) expected error")
	}
}
