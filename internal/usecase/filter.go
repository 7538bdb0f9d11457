package usecase

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/unicatalog/backend/internal/domain"
)

// DefaultPageSize is the number of programs per listing page
const DefaultPageSize = 12

// Criteria selects programs from the catalog. Empty fields are inactive;
// active fields are ANDed.
type Criteria struct {
	Faculty string       // case-insensitive substring of faculty
	Code    string       // case-insensitive substring of code
	Query   string       // case-insensitive substring of the search text
	Level   domain.Level // exact
}

func (c Criteria) normalized() Criteria {
	return Criteria{
		Faculty: strings.ToLower(strings.TrimSpace(c.Faculty)),
		Code:    strings.ToLower(strings.TrimSpace(c.Code)),
		Query:   strings.ToLower(strings.TrimSpace(c.Query)),
		Level:   domain.Level(strings.TrimSpace(string(c.Level))),
	}
}

// Matches reports whether p satisfies every active criterion
func (c Criteria) Matches(p domain.Program) bool {
	c = c.normalized()
	return c.matches(p)
}

func (c Criteria) matches(p domain.Program) bool {
	if c.Faculty != "" && !strings.Contains(strings.ToLower(p.Faculty), c.Faculty) {
		return false
	}
	if c.Level != "" && p.Level != c.Level {
		return false
	}
	if c.Code != "" && !strings.Contains(strings.ToLower(p.Code), c.Code) {
		return false
	}
	if c.Query != "" && !strings.Contains(p.SearchText, c.Query) {
		return false
	}
	return true
}

// Filter returns the programs matching criteria in catalog order
func Filter(programs []domain.Program, criteria Criteria) []domain.Program {
	c := criteria.normalized()
	out := make([]domain.Program, 0, len(programs))
	for _, p := range programs {
		if c.matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// SortKey names a listing order
type SortKey string

const (
	SortNameAsc    SortKey = "name-asc"
	SortNameDesc   SortKey = "name-desc"
	SortCodeAsc    SortKey = "code-asc"
	SortCodeDesc   SortKey = "code-desc"
	SortBudgetAsc  SortKey = "budget-asc"
	SortBudgetDesc SortKey = "budget-desc"
	SortPriceAsc   SortKey = "price-asc"
	SortPriceDesc  SortKey = "price-desc"
)

// SortKeys lists every supported key
var SortKeys = []SortKey{
	SortNameAsc, SortNameDesc, SortCodeAsc, SortCodeDesc,
	SortBudgetAsc, SortBudgetDesc, SortPriceAsc, SortPriceDesc,
}

// Valid reports whether k is a supported key
func (k SortKey) Valid() bool {
	return slices.Contains(SortKeys, k)
}

// Sort returns a stably sorted copy. The input is not modified and an
// unknown key keeps catalog order.
func Sort(programs []domain.Program, key SortKey) []domain.Program {
	out := slices.Clone(programs)
	if out == nil {
		out = []domain.Program{}
	}

	// collate.Collator keeps internal buffers, so one per call
	collator := collate.New(language.Russian)

	var compare func(a, b domain.Program) int
	switch key {
	case SortNameAsc:
		compare = func(a, b domain.Program) int { return collator.CompareString(a.Title, b.Title) }
	case SortNameDesc:
		compare = func(a, b domain.Program) int { return collator.CompareString(b.Title, a.Title) }
	case SortCodeAsc:
		compare = func(a, b domain.Program) int { return collator.CompareString(a.Code, b.Code) }
	case SortCodeDesc:
		compare = func(a, b domain.Program) int { return collator.CompareString(b.Code, a.Code) }
	case SortBudgetAsc:
		compare = func(a, b domain.Program) int { return cmp.Compare(a.BudgetPlaces, b.BudgetPlaces) }
	case SortBudgetDesc:
		compare = func(a, b domain.Program) int { return cmp.Compare(b.BudgetPlaces, a.BudgetPlaces) }
	case SortPriceAsc:
		compare = func(a, b domain.Program) int { return cmp.Compare(priceFloor(a), priceFloor(b)) }
	case SortPriceDesc:
		compare = func(a, b domain.Program) int { return cmp.Compare(priceFloor(b), priceFloor(a)) }
	default:
		return out
	}

	slices.SortStableFunc(out, compare)
	return out
}

// priceFloor treats unknown prices as zero
func priceFloor(p domain.Program) float64 {
	if p.Price <= 0 || math.IsNaN(p.Price) {
		return 0
	}
	return p.Price
}

// Page is one slice of a listing
type Page struct {
	Items      []domain.Program `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
	TotalItems int              `json:"totalItems"`
}

// Paginate slices programs into 1-based pages. Out-of-range pages are
// clamped to the nearest valid page.
func Paginate(programs []domain.Program, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(programs)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	page = min(max(page, 1), totalPages)

	start := min((page-1)*size, total)
	end := min(start+size, total)

	items := make([]domain.Program, end-start)
	copy(items, programs[start:end])

	return Page{
		Items:      items,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		TotalItems: total,
	}
}

// CollectFaculties merges a fixed roster with the faculties present in the
// data, skipping placeholders, in Russian collation order.
func CollectFaculties(roster []string, programs []domain.Program) []string {
	seen := make(map[string]bool, len(roster))
	var out []string
	add := func(f string) {
		f = strings.TrimSpace(f)
		if f == "" || f == domain.PlaceholderText || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}

	for _, f := range roster {
		add(f)
	}
	for _, p := range programs {
		add(p.Faculty)
	}

	collate.New(language.Russian).SortStrings(out)
	return out
}
