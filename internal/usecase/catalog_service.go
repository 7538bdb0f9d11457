package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unicatalog/backend/internal/domain"
	"github.com/unicatalog/backend/internal/metrics"
)

// Cache keys of the raw source payloads
const (
	mainCacheKey     = "programsDataCache:main"
	extendedCacheKey = "programsDataCache:extended"
)

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	// CacheTTL bounds how long raw source payloads are reused. Zero disables caching.
	CacheTTL time.Duration
	// Faculties is the fixed faculty roster shown even when no program references it
	Faculties  []string
	Normalizer NormalizerConfig
}

// CatalogStatus describes the loaded catalog
type CatalogStatus struct {
	Programs int        `json:"programs"`
	Skipped  int        `json:"skipped"`
	Stats    MergeStats `json:"stats"`
	Fallback bool       `json:"fallback"`
	LoadedAt time.Time  `json:"loadedAt"`
}

// CatalogService owns the merged catalog and its lifecycle
type CatalogService struct {
	source    domain.ProgramSource
	fallback  domain.ProgramSource
	cache     domain.StateStore
	merger    *Merger
	cacheTTL  time.Duration
	faculties []string

	mu       sync.RWMutex
	programs []domain.Program
	byID     map[int]int
	status   CatalogStatus
}

// NewCatalogService creates a catalog service. fallback and cache may be nil.
func NewCatalogService(
	source domain.ProgramSource,
	fallback domain.ProgramSource,
	cache domain.StateStore,
	config CatalogServiceConfig,
) *CatalogService {
	return &CatalogService{
		source:    source,
		fallback:  fallback,
		cache:     cache,
		merger:    NewMerger(NewNormalizer(config.Normalizer)),
		cacheTTL:  config.CacheTTL,
		faculties: config.Faculties,
	}
}

// Init loads the catalog, reusing cached payloads when fresh
func (s *CatalogService) Init(ctx context.Context) error {
	_, err := s.Reload(ctx, false)
	return err
}

// Dispose drops the loaded catalog
func (s *CatalogService) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs = nil
	s.byID = nil
	s.status = CatalogStatus{}
}

// Reload fetches both sources concurrently and swaps in the merged catalog.
// A failed source degrades to an empty input. When both are empty the
// fallback dataset is tried; without one ErrEmptyCatalog is returned and the
// previous catalog stays in place.
func (s *CatalogService) Reload(ctx context.Context, ignoreCache bool) (CatalogStatus, error) {
	var (
		mainRecords     []domain.RawMainRecord
		extendedRecords []domain.RawExtendedRecord
		g               errgroup.Group
	)

	g.Go(func() error {
		mainRecords = loadSource(ctx, s, "main", mainCacheKey, ignoreCache, s.source.FetchMain)
		return nil
	})
	g.Go(func() error {
		extendedRecords = loadSource(ctx, s, "extended", extendedCacheKey, ignoreCache, s.source.FetchExtended)
		return nil
	})
	_ = g.Wait()

	result, err := s.merger.Merge(mainRecords, extendedRecords)
	fallback := false
	if errors.Is(err, domain.ErrEmptyCatalog) && s.fallback != nil {
		slog.Warn("Both catalog sources empty, loading fallback dataset")
		result, err = s.mergeFallback(ctx)
		fallback = true
	}
	if err != nil {
		return s.Status(), err
	}

	status := CatalogStatus{
		Programs: len(result.Programs),
		Skipped:  result.Skipped,
		Stats:    result.Stats,
		Fallback: fallback,
		LoadedAt: time.Now(),
	}

	byID := make(map[int]int, len(result.Programs))
	for i, p := range result.Programs {
		byID[p.ID] = i
	}

	s.mu.Lock()
	s.programs = result.Programs
	s.byID = byID
	s.status = status
	s.mu.Unlock()

	metrics.CatalogPrograms.WithLabelValues(string(domain.SourceMerged)).Set(float64(result.Stats.Merged))
	metrics.CatalogPrograms.WithLabelValues(string(domain.SourceExtendedOnly)).Set(float64(result.Stats.ExtendedOnly))
	metrics.CatalogPrograms.WithLabelValues(string(domain.SourceMainOnly)).Set(float64(result.Stats.MainOnly))
	metrics.SkippedRecords.Add(float64(result.Skipped))

	slog.Info("Catalog loaded",
		"programs", status.Programs,
		"with_details", result.Stats.Merged,
		"skipped", status.Skipped,
		"fallback", fallback)

	return status, nil
}

func (s *CatalogService) mergeFallback(ctx context.Context) (MergeResult, error) {
	records, err := s.fallback.FetchMain(ctx)
	if err != nil {
		return MergeResult{}, fmt.Errorf("%w: fallback: %v", domain.ErrEmptyCatalog, err)
	}
	return s.merger.Merge(records, nil)
}

// loadSource returns cached records when fresh, otherwise fetches and caches
// them. Fetch failures are logged and yield an empty input.
func loadSource[T any](
	ctx context.Context,
	s *CatalogService,
	name, cacheKey string,
	ignoreCache bool,
	fetch func(context.Context) ([]T, error),
) []T {
	start := time.Now()

	if !ignoreCache {
		if records, ok := readCache[T](ctx, s.cache, cacheKey); ok {
			metrics.SourceFetchDuration.WithLabelValues(name, "cache").Observe(time.Since(start).Seconds())
			return records
		}
	}

	records, err := fetch(ctx)
	if err != nil {
		metrics.SourceFetchDuration.WithLabelValues(name, "error").Observe(time.Since(start).Seconds())
		slog.Warn("Catalog source unavailable, continuing without it", "source", name, "error", err)
		return nil
	}
	metrics.SourceFetchDuration.WithLabelValues(name, "ok").Observe(time.Since(start).Seconds())

	if len(records) > 0 && s.cache != nil && s.cacheTTL > 0 {
		if data, err := json.Marshal(records); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
				// Caching is best effort
				slog.Debug("Failed to cache source payload", "source", name, "error", err)
			}
		}
	}
	return records
}

func readCache[T any](ctx context.Context, cache domain.StateStore, key string) ([]T, bool) {
	if cache == nil {
		return nil, false
	}
	data, err := cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil || len(records) == 0 {
		return nil, false
	}
	return records, true
}

// Status describes the loaded catalog
func (s *CatalogService) Status() CatalogStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Programs returns a copy of the full catalog
func (s *CatalogService) Programs() []domain.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.programs)
}

// Get resolves a program by id
func (s *CatalogService) Get(id int) (domain.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.Program{}, fmt.Errorf("%w: id %d", domain.ErrProgramNotFound, id)
	}
	return s.programs[i], nil
}

// Faculties lists the faculty roster merged with faculties found in the data
func (s *CatalogService) Faculties() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CollectFaculties(s.faculties, s.programs)
}

// Query runs the filter, sort and pagination pipeline over the catalog
func (s *CatalogService) Query(criteria Criteria, key SortKey, page, size int) (Page, error) {
	s.mu.RLock()
	loaded := s.programs != nil
	filtered := Filter(s.programs, criteria)
	s.mu.RUnlock()

	if !loaded {
		return Page{}, domain.ErrEmptyCatalog
	}
	return Paginate(Sort(filtered, key), page, size), nil
}
