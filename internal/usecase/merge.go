package usecase

import (
	"log/slog"

	"github.com/unicatalog/backend/internal/domain"
)

// joinKey identifies a program across both sources
type joinKey struct {
	code  string
	title string
}

// MergeStats counts merged programs by provenance
type MergeStats struct {
	Merged       int `json:"merged"`
	ExtendedOnly int `json:"extendedOnly"`
	MainOnly     int `json:"mainOnly"`
}

// MergeResult is the outcome of a merge pass
type MergeResult struct {
	Programs []domain.Program `json:"programs"`
	// Skipped counts malformed or duplicate records that were dropped
	Skipped int        `json:"skipped"`
	Stats   MergeStats `json:"stats"`
}

// Merger joins the main and extended datasets into one normalized catalog
type Merger struct {
	normalizer *Normalizer
}

// NewMerger creates a merger that normalizes its output with n
func NewMerger(n *Normalizer) *Merger {
	return &Merger{normalizer: n}
}

// Merge joins main records (detail-rich, possibly partial) with extended records
// (complete roster). Extended records provide identity and classification, a
// main record matched on (code, title) provides the operational fields, and
// unmatched main records are appended as main_only programs.
func (m *Merger) Merge(mainRecords []domain.RawMainRecord, extendedRecords []domain.RawExtendedRecord) (MergeResult, error) {
	var result MergeResult

	mains := make([]domain.Program, 0, len(mainRecords))
	for _, r := range mainRecords {
		p, err := m.normalizer.FromMain(r)
		if err != nil {
			slog.Warn("Skipping main record", "error", err)
			result.Skipped++
			continue
		}
		mains = append(mains, p)
	}

	if len(extendedRecords) == 0 {
		if len(mains) == 0 {
			return result, domain.ErrEmptyCatalog
		}
		result.Programs = m.finish(dedupeMain(mains, &result))
		result.Stats.MainOnly = len(result.Programs)
		return result, nil
	}

	index := make(map[joinKey]int, len(mains))
	for i, p := range mains {
		key := joinKey{p.Code, p.Title}
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	programs := make([]domain.Program, 0, len(extendedRecords)+len(mains))
	emitted := make(map[joinKey]bool, len(extendedRecords))
	seenIDs := make(map[int]bool, len(extendedRecords))

	for _, r := range extendedRecords {
		p, err := m.normalizer.FromExtended(r)
		if err != nil {
			slog.Warn("Skipping extended record", "error", err)
			result.Skipped++
			continue
		}
		if seenIDs[p.ID] {
			slog.Warn("Skipping extended record with duplicate id", "id", p.ID, "code", p.Code)
			result.Skipped++
			continue
		}
		seenIDs[p.ID] = true

		key := joinKey{p.Code, p.Title}
		if i, ok := index[key]; ok {
			applyDetails(&p, mains[i])
			result.Stats.Merged++
		} else {
			result.Stats.ExtendedOnly++
		}

		emitted[key] = true
		programs = append(programs, p)
	}

	for i, p := range mains {
		key := joinKey{p.Code, p.Title}
		if index[key] != i {
			slog.Warn("Skipping duplicate main record", "code", p.Code, "title", p.Title)
			result.Skipped++
			continue
		}
		if emitted[key] {
			continue
		}
		emitted[key] = true
		programs = append(programs, p)
		result.Stats.MainOnly++
	}

	result.Programs = m.finish(programs)
	if len(result.Programs) == 0 {
		return result, domain.ErrEmptyCatalog
	}

	slog.Debug("Catalog merged",
		"programs", len(result.Programs),
		"merged", result.Stats.Merged,
		"extended_only", result.Stats.ExtendedOnly,
		"main_only", result.Stats.MainOnly,
		"skipped", result.Skipped)

	return result, nil
}

// applyDetails copies the operational fields of a matched main record
func applyDetails(p *domain.Program, main domain.Program) {
	p.Form = main.Form
	p.Duration = main.Duration
	p.BudgetPlaces = main.BudgetPlaces
	p.Price = main.Price
	p.Description = main.Description
	p.Updated = main.Updated
	if p.Link == "" {
		p.Link = main.Link
	}
	if p.Faculty == "" {
		p.Faculty = main.Faculty
	}
	p.HasDetails = true
	p.Source = domain.SourceMerged
}

// dedupeMain keeps the first main record for every (code, title) key
func dedupeMain(mains []domain.Program, result *MergeResult) []domain.Program {
	seen := make(map[joinKey]bool, len(mains))
	out := make([]domain.Program, 0, len(mains))
	for _, p := range mains {
		key := joinKey{p.Code, p.Title}
		if seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func (m *Merger) finish(programs []domain.Program) []domain.Program {
	assignIDs(programs)
	for i := range programs {
		programs[i] = m.normalizer.Normalize(programs[i])
	}
	return programs
}

// assignIDs keeps the first claim on every positive id and gives the rest
// fresh ids above the current maximum.
func assignIDs(programs []domain.Program) {
	used := make(map[int]bool, len(programs))
	maxID := 0
	var pending []int

	for i, p := range programs {
		if p.ID > 0 && !used[p.ID] {
			used[p.ID] = true
			if p.ID > maxID {
				maxID = p.ID
			}
			continue
		}
		pending = append(pending, i)
	}

	for _, i := range pending {
		maxID++
		programs[i].ID = maxID
	}
}
