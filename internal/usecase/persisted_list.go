package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/unicatalog/backend/internal/domain"
)

// Keys of the persisted comparison state
const (
	SelectionKey    = "comparedPrograms"
	HandoffKey      = "compareQueue"
	DefaultCapacity = 5
)

// StateKeys names the persisted slots used by one client session
type StateKeys struct {
	Selection string
	Handoff   string
}

// SessionKeys scopes the comparison keys to a client session. An empty
// session uses the bare keys.
func SessionKeys(session string) StateKeys {
	if session == "" {
		return StateKeys{Selection: SelectionKey, Handoff: HandoffKey}
	}
	return StateKeys{
		Selection: session + ":" + SelectionKey,
		Handoff:   session + ":" + HandoffKey,
	}
}

// ToggleResult reports which way a toggle went
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
)

// boundedList is an insertion-ordered, id-unique, capacity-bounded sequence
// that writes itself to a state store after every mutation.
type boundedList[T any] struct {
	store    domain.StateStore
	key      string
	capacity int
	idOf     func(T) int
	items    []T
}

func newBoundedList[T any](store domain.StateStore, key string, capacity int, idOf func(T) int) *boundedList[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &boundedList[T]{
		store:    store,
		key:      key,
		capacity: capacity,
		idOf:     idOf,
	}
}

// load replaces the in-memory items with the persisted sequence. Unreadable
// state starts empty; duplicates and overflow left behind by concurrent
// writers are dropped.
func (l *boundedList[T]) load(ctx context.Context) error {
	l.items = nil

	data, err := l.store.Get(ctx, l.key)
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", domain.ErrStoreUnavailable, l.key, err)
	}

	var stored []T
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Warn("Discarding unreadable comparison state", "key", l.key, "error", err)
		return nil
	}

	seen := make(map[int]bool, len(stored))
	for _, item := range stored {
		id := l.idOf(item)
		if seen[id] || len(l.items) >= l.capacity {
			continue
		}
		seen[id] = true
		l.items = append(l.items, item)
	}
	return nil
}

func (l *boundedList[T]) persist(ctx context.Context) error {
	items := l.items
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", l.key, err)
	}
	if err := l.store.Set(ctx, l.key, data, 0); err != nil {
		return fmt.Errorf("%w: save %s: %v", domain.ErrStoreUnavailable, l.key, err)
	}
	return nil
}

func (l *boundedList[T]) indexOf(id int) int {
	for i, item := range l.items {
		if l.idOf(item) == id {
			return i
		}
	}
	return -1
}

func (l *boundedList[T]) contains(id int) bool {
	return l.indexOf(id) != -1
}

func (l *boundedList[T]) snapshot() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// add fails with ErrCapacityExceeded whenever the list is full, even for an
// item it already holds.
func (l *boundedList[T]) add(ctx context.Context, item T) error {
	if len(l.items) >= l.capacity {
		return domain.ErrCapacityExceeded
	}
	if l.contains(l.idOf(item)) {
		return domain.ErrAlreadyPresent
	}

	previous := l.items
	l.items = append(l.snapshot(), item)
	if err := l.persist(ctx); err != nil {
		l.items = previous
		return err
	}
	return nil
}

func (l *boundedList[T]) remove(ctx context.Context, id int) (T, bool, error) {
	var zero T
	i := l.indexOf(id)
	if i == -1 {
		return zero, false, nil
	}

	previous := l.items
	removed := l.items[i]
	next := make([]T, 0, len(l.items)-1)
	next = append(next, l.items[:i]...)
	next = append(next, l.items[i+1:]...)
	l.items = next

	if err := l.persist(ctx); err != nil {
		l.items = previous
		return zero, false, err
	}
	return removed, true, nil
}

func (l *boundedList[T]) clear(ctx context.Context) error {
	previous := l.items
	l.items = nil
	if err := l.persist(ctx); err != nil {
		l.items = previous
		return err
	}
	return nil
}

func (l *boundedList[T]) toggle(ctx context.Context, item T) (ToggleResult, error) {
	if l.contains(l.idOf(item)) {
		if _, _, err := l.remove(ctx, l.idOf(item)); err != nil {
			return "", err
		}
		return ToggleRemoved, nil
	}
	if err := l.add(ctx, item); err != nil {
		return "", err
	}
	return ToggleAdded, nil
}
