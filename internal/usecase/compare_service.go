package usecase

import (
	"context"
	"fmt"

	"github.com/unicatalog/backend/internal/domain"
)

// CompareService opens the comparison state of a client session. Each call
// returns freshly loaded objects; nothing is shared between requests.
type CompareService struct {
	store    domain.StateStore
	catalog  domain.ProgramResolver
	capacity int
}

// NewCompareService creates a compare service over a state store
func NewCompareService(store domain.StateStore, catalog domain.ProgramResolver, capacity int) *CompareService {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &CompareService{store: store, catalog: catalog, capacity: capacity}
}

// Capacity returns the selection bound
func (s *CompareService) Capacity() int {
	return s.capacity
}

// Selection loads the session's comparison selection
func (s *CompareService) Selection(ctx context.Context, session string) (*Selection, error) {
	sel := NewSelection(s.store, SessionKeys(session).Selection, s.capacity)
	if err := sel.Init(ctx); err != nil {
		return nil, err
	}
	return sel, nil
}

// Handoff loads the session's handoff queue
func (s *CompareService) Handoff(ctx context.Context, session string) (*HandoffQueue, error) {
	q := NewHandoffQueue(s.store, SessionKeys(session).Handoff, s.capacity)
	if err := q.Init(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// AddByID resolves a catalog program and adds it to the session selection
func (s *CompareService) AddByID(ctx context.Context, session string, id int) (*Selection, error) {
	program, err := s.catalog.Get(id)
	if err != nil {
		return nil, err
	}
	sel, err := s.Selection(ctx, session)
	if err != nil {
		return nil, err
	}
	return sel, sel.Add(ctx, program)
}

// ToggleByID flips a catalog program in the session selection
func (s *CompareService) ToggleByID(ctx context.Context, session string, id int) (ToggleResult, *Selection, error) {
	program, err := s.catalog.Get(id)
	if err != nil {
		return "", nil, err
	}
	sel, err := s.Selection(ctx, session)
	if err != nil {
		return "", nil, err
	}
	result, err := sel.Toggle(ctx, program)
	return result, sel, err
}

// ToggleQueued flips a catalog program in the session handoff queue
func (s *CompareService) ToggleQueued(ctx context.Context, session string, id int) (ToggleResult, *HandoffQueue, error) {
	program, err := s.catalog.Get(id)
	if err != nil {
		return "", nil, err
	}
	q, err := s.Handoff(ctx, session)
	if err != nil {
		return "", nil, err
	}
	result, err := q.Toggle(ctx, program)
	return result, q, err
}

// Drain moves the session's handoff queue into its selection
func (s *CompareService) Drain(ctx context.Context, session string) (DrainReport, *Selection, error) {
	sel, err := s.Selection(ctx, session)
	if err != nil {
		return DrainReport{}, nil, err
	}
	q := NewHandoffQueue(s.store, SessionKeys(session).Handoff, s.capacity)
	report, err := sel.DrainHandoff(ctx, q, s.catalog)
	if err != nil {
		return report, sel, fmt.Errorf("drain handoff: %w", err)
	}
	return report, sel, nil
}
