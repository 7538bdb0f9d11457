package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unicatalog/backend/internal/domain"
)

// MockStateStore is an in-memory domain.StateStore with injectable failures
type MockStateStore struct {
	mu        sync.Mutex
	data      map[string][]byte
	ttls      map[string]time.Duration
	getError  error
	setError  error
	setCalls  int
	delCalled bool
}

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *MockStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrStateNotFound
}

func (m *MockStateStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = append([]byte(nil), value...)
	m.ttls[key] = ttl
	return nil
}

func (m *MockStateStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delCalled = true
	delete(m.data, key)
	return nil
}

func (m *MockStateStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockProgramSource is a mock implementation of domain.ProgramSource
type MockProgramSource struct {
	mu            sync.Mutex
	main          []domain.RawMainRecord
	extended      []domain.RawExtendedRecord
	mainError     error
	extendedError error
	mainCalls     int
	extendedCalls int
}

func (m *MockProgramSource) FetchMain(ctx context.Context) ([]domain.RawMainRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mainCalls++
	if m.mainError != nil {
		return nil, m.mainError
	}
	return m.main, nil
}

func (m *MockProgramSource) FetchExtended(ctx context.Context) ([]domain.RawExtendedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extendedCalls++
	if m.extendedError != nil {
		return nil, m.extendedError
	}
	return m.extended, nil
}

// MockResolver resolves programs from a fixed map
type MockResolver map[int]domain.Program

func (m MockResolver) Get(id int) (domain.Program, error) {
	p, ok := m[id]
	if !ok {
		return domain.Program{}, fmt.Errorf("%w: id %d", domain.ErrProgramNotFound, id)
	}
	return p, nil
}

// testProgram builds a normalized program for selection and ranking tests
func testProgram(id int, title string) domain.Program {
	n := NewNormalizer(NormalizerConfig{})
	return n.Normalize(domain.Program{
		ID:     id,
		Code:   fmt.Sprintf("09.03.%02d", id),
		Title:  title,
		Level:  domain.LevelBachelor,
		Source: domain.SourceMerged,
	})
}

func testCatalog(ids ...int) MockResolver {
	resolver := make(MockResolver, len(ids))
	for _, id := range ids {
		resolver[id] = testProgram(id, fmt.Sprintf("Программа %d", id))
	}
	return resolver
}
