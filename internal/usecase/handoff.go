package usecase

import (
	"context"
	"fmt"

	"github.com/unicatalog/backend/internal/domain"
)

// HandoffQueue relays programs picked on the catalog listing to the
// comparison view. It is persisted under its own key, bounded like the
// selection, and consumed at most once by Selection.DrainHandoff.
type HandoffQueue struct {
	list *boundedList[domain.ComparisonSlot]
}

// NewHandoffQueue creates a queue persisted under key
func NewHandoffQueue(store domain.StateStore, key string, capacity int) *HandoffQueue {
	return &HandoffQueue{
		list: newBoundedList(store, key, capacity, func(s domain.ComparisonSlot) int { return s.ID }),
	}
}

// Init loads the persisted queue
func (q *HandoffQueue) Init(ctx context.Context) error {
	return q.list.load(ctx)
}

// Dispose drops the in-memory snapshot
func (q *HandoffQueue) Dispose() {
	q.list.items = nil
}

// Slots returns the queued slots in insertion order
func (q *HandoffQueue) Slots() []domain.ComparisonSlot {
	return q.list.snapshot()
}

// Len returns the number of queued slots
func (q *HandoffQueue) Len() int {
	return len(q.list.items)
}

// Contains reports whether a program is queued
func (q *HandoffQueue) Contains(id int) bool {
	return q.list.contains(id)
}

// Enqueue appends the compact projection of p
func (q *HandoffQueue) Enqueue(ctx context.Context, p domain.Program) error {
	return q.list.add(ctx, p.Slot())
}

// Withdraw removes a queued program; a missing id is a no-op
func (q *HandoffQueue) Withdraw(ctx context.Context, id int) (bool, error) {
	_, ok, err := q.list.remove(ctx, id)
	return ok, err
}

// Toggle backs the per-card quick-compare control
func (q *HandoffQueue) Toggle(ctx context.Context, p domain.Program) (ToggleResult, error) {
	return q.list.toggle(ctx, p.Slot())
}

// discard deletes the persisted queue and empties the snapshot
func (q *HandoffQueue) discard(ctx context.Context) error {
	q.list.items = nil
	if err := q.list.store.Delete(ctx, q.list.key); err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStoreUnavailable, q.list.key, err)
	}
	return nil
}
