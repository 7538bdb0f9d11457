package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/unicatalog/backend/internal/domain"
	"github.com/unicatalog/backend/internal/metrics"
)

// Selection is the user's bounded, insertion-ordered set of programs chosen
// for comparison. Every mutation is persisted before it returns.
//
// Two clients mutating the same persisted key concurrently (two browser tabs
// sharing a session) are last-write-wins; there is no version check.
type Selection struct {
	list *boundedList[domain.Program]
}

// NewSelection creates a selection persisted under key with the given capacity.
// A non-positive capacity uses DefaultCapacity.
func NewSelection(store domain.StateStore, key string, capacity int) *Selection {
	return &Selection{
		list: newBoundedList(store, key, capacity, func(p domain.Program) int { return p.ID }),
	}
}

// Init loads the persisted selection
func (s *Selection) Init(ctx context.Context) error {
	return s.list.load(ctx)
}

// Dispose drops the in-memory snapshot. The persisted state is untouched.
func (s *Selection) Dispose() {
	s.list.items = nil
}

// Capacity returns the maximum number of selected programs
func (s *Selection) Capacity() int {
	return s.list.capacity
}

// Len returns the number of selected programs
func (s *Selection) Len() int {
	return len(s.list.items)
}

// Programs returns a copy of the selection in insertion order
func (s *Selection) Programs() []domain.Program {
	return s.list.snapshot()
}

// Contains reports whether a program is selected. UI state such as the
// quick-compare button must be derived from this, not cached.
func (s *Selection) Contains(id int) bool {
	return s.list.contains(id)
}

// Add appends a program. It fails with ErrCapacityExceeded when the selection
// is full and with ErrAlreadyPresent when the program is already selected.
func (s *Selection) Add(ctx context.Context, p domain.Program) error {
	err := s.list.add(ctx, p)
	metrics.ObserveSelection("add", resultLabel(err))
	return err
}

// Remove deletes a program by id. A missing id is a no-op reported by ok=false.
func (s *Selection) Remove(ctx context.Context, id int) (removed domain.Program, ok bool, err error) {
	removed, ok, err = s.list.remove(ctx, id)
	metrics.ObserveSelection("remove", resultLabel(err))
	return removed, ok, err
}

// Clear empties the selection
func (s *Selection) Clear(ctx context.Context) error {
	err := s.list.clear(ctx)
	metrics.ObserveSelection("clear", resultLabel(err))
	return err
}

// Toggle removes the program when selected and adds it otherwise
func (s *Selection) Toggle(ctx context.Context, p domain.Program) (ToggleResult, error) {
	result, err := s.list.toggle(ctx, p)
	metrics.ObserveSelection("toggle", resultLabel(err))
	return result, err
}

// DrainReport describes what happened to each handoff slot
type DrainReport struct {
	Added          []int    `json:"added"`
	AlreadyPresent []int    `json:"alreadyPresent"`
	OverCapacity   []int    `json:"overCapacity"`
	Unresolved     []int    `json:"unresolved"`
	Warnings       []string `json:"warnings"`
}

// DrainHandoff moves every slot of the handoff queue into the selection. Slots
// are resolved against the full catalog by id; duplicates are skipped and
// overflow is reported as a warning instead of failing the drain. The queue
// is deleted afterwards whatever happened to its entries, so stale slots are
// never replayed.
func (s *Selection) DrainHandoff(ctx context.Context, queue *HandoffQueue, catalog domain.ProgramResolver) (report DrainReport, err error) {
	defer func() {
		if delErr := queue.discard(ctx); delErr != nil && err == nil {
			err = delErr
		}
		metrics.ObserveSelection("drain", resultLabel(err))
	}()

	if loadErr := queue.Init(ctx); loadErr != nil {
		slog.Warn("Handoff queue unreadable, discarding", "key", queue.list.key, "error", loadErr)
		return report, nil
	}

	for _, slot := range queue.Slots() {
		program, resolveErr := catalog.Get(slot.ID)
		if resolveErr != nil {
			report.Unresolved = append(report.Unresolved, slot.ID)
			continue
		}

		// Slots already selected are skipped before the capacity check
		if s.Contains(slot.ID) {
			report.AlreadyPresent = append(report.AlreadyPresent, slot.ID)
			continue
		}

		addErr := s.Add(ctx, program)
		switch {
		case addErr == nil:
			report.Added = append(report.Added, slot.ID)
		case errors.Is(addErr, domain.ErrAlreadyPresent):
			report.AlreadyPresent = append(report.AlreadyPresent, slot.ID)
		case errors.Is(addErr, domain.ErrCapacityExceeded):
			report.OverCapacity = append(report.OverCapacity, slot.ID)
		default:
			report.Warnings = append(report.Warnings, fmt.Sprintf("Не удалось добавить программу %d: %v", slot.ID, addErr))
		}
	}

	if len(report.OverCapacity) > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("Можно сравнивать не более %d программ", s.Capacity()))
	}

	return report, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, domain.ErrAlreadyPresent):
		return "already_present"
	default:
		return "error"
	}
}
