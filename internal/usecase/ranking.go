package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/unicatalog/backend/internal/domain"
)

// MinComparable is the smallest selection that ranking views accept
const MinComparable = 2

// Package-level compiled patterns
var (
	nonNumericRegex = regexp.MustCompile(`[^\d.]`)
	leadingFloat    = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)
	firstIntRegex   = regexp.MustCompile(`\d+`)
)

// unknownDuration ranks programs without a parsable duration last
const unknownDuration = 99

// Direction selects whether larger or smaller values win
type Direction string

const (
	DirectionMax Direction = "max"
	DirectionMin Direction = "min"
)

// Valid reports whether d is max or min
func (d Direction) Valid() bool {
	return d == DirectionMax || d == DirectionMin
}

// Rankable attributes
const (
	AttributeBudgetPlaces = "budgetPlaces"
	AttributePrice        = "price"
	AttributeDuration     = "duration"
)

// RequireComparable is the single precondition check for every ranking consumer
func RequireComparable(selection []domain.Program) error {
	if len(selection) < MinComparable {
		return fmt.Errorf("%w: %d selected, need at least %d", domain.ErrInsufficientSelection, len(selection), MinComparable)
	}
	return nil
}

// ParseMagnitude extracts a number from a raw number or a display string such
// as "145 000 ₽/год". Every character other than digits and '.' is dropped
// and the longest leading decimal is parsed.
func ParseMagnitude(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case float32:
		return float64(v), !math.IsNaN(float64(v))
	case string:
		digits := leadingFloat.FindString(nonNumericRegex.ReplaceAllString(v, ""))
		if digits == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// BestIndex returns the position of the best value. Entries without a number
// are never candidates but keep their positions; ties resolve to the first index.
func BestIndex(values []any, dir Direction) (int, bool) {
	best := -1
	var bestValue float64

	for i, value := range values {
		n, ok := ParseMagnitude(value)
		if !ok {
			continue
		}
		if best == -1 ||
			(dir == DirectionMax && n > bestValue) ||
			(dir == DirectionMin && n < bestValue) {
			best = i
			bestValue = n
		}
	}

	return best, best != -1
}

// RankResult is the winner for one attribute
type RankResult struct {
	Attribute string    `json:"attribute"`
	Direction Direction `json:"direction"`
	Index     int       `json:"index"`
	Found     bool      `json:"found"`
	ProgramID int       `json:"programId,omitempty"`
}

// Rank picks the best program of the selection for an attribute
func Rank(selection []domain.Program, attribute string, dir Direction) (RankResult, error) {
	if err := RequireComparable(selection); err != nil {
		return RankResult{}, err
	}
	if !dir.Valid() {
		return RankResult{}, fmt.Errorf("%w: direction %q", domain.ErrInvalidRequest, dir)
	}

	values := make([]any, len(selection))
	for i, p := range selection {
		switch attribute {
		case AttributeBudgetPlaces:
			values[i] = placesCell(p)
		case AttributePrice:
			values[i] = p.FormattedPrice
		case AttributeDuration:
			values[i] = p.Duration
		default:
			return RankResult{}, fmt.Errorf("%w: attribute %q", domain.ErrInvalidRequest, attribute)
		}
	}

	result := RankResult{Attribute: attribute, Direction: dir, Index: -1}
	if i, ok := BestIndex(values, dir); ok {
		result.Index = i
		result.Found = true
		result.ProgramID = selection[i].ID
	}
	return result, nil
}

// TableRow is one parameter row of the comparison table
type TableRow struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
	// Best is the highlighted column, -1 when no column wins
	Best int `json:"best"`
}

// TableSection groups rows under a heading
type TableSection struct {
	Category string     `json:"category"`
	Rows     []TableRow `json:"rows"`
}

// CompareTable lays out the selection side by side with best values marked
func CompareTable(selection []domain.Program) ([]TableSection, error) {
	if err := RequireComparable(selection); err != nil {
		return nil, err
	}

	column := func(cell func(domain.Program) any) ([]string, []any) {
		display := make([]string, len(selection))
		raw := make([]any, len(selection))
		for i, p := range selection {
			raw[i] = cell(p)
			display[i] = fmt.Sprint(raw[i])
		}
		return display, raw
	}
	row := func(label string, cell func(domain.Program) any, dir Direction) TableRow {
		display, raw := column(cell)
		r := TableRow{Label: label, Values: display, Best: -1}
		if dir != "" {
			if i, ok := BestIndex(raw, dir); ok {
				r.Best = i
			}
		}
		return r
	}

	return []TableSection{
		{
			Category: "Основная информация",
			Rows: []TableRow{
				row("Факультет", func(p domain.Program) any { return p.Faculty }, ""),
				row("Уровень образования", func(p domain.Program) any { return p.Level.DisplayName() }, ""),
				row("Форма обучения", func(p domain.Program) any { return p.Form }, ""),
				row("Срок обучения", func(p domain.Program) any { return p.Duration }, ""),
			},
		},
		{
			Category: "Финансовые условия",
			Rows: []TableRow{
				row("Бюджетных мест", placesCell, DirectionMax),
				row("Стоимость обучения", func(p domain.Program) any { return p.FormattedPrice }, DirectionMin),
			},
		},
	}, nil
}

// placesCell shows zero seats as a placeholder so it never wins
func placesCell(p domain.Program) any {
	if p.BudgetPlaces <= 0 {
		return domain.PlaceholderText
	}
	return p.BudgetPlaces
}

// Verdict names the winning program of one summary category
type Verdict struct {
	Title     string         `json:"title"`
	Reason    string         `json:"reason"`
	ProgramID int            `json:"programId"`
	Program   domain.Program `json:"program"`
}

// Summary holds category winners and recommendations for a selection
type Summary struct {
	Winners         []Verdict `json:"winners"`
	Recommendations []Verdict `json:"recommendations"`
}

// Every reducer returns an index into the selection
type reducer func([]domain.Program) int

func cheapest(programs []domain.Program) int {
	best, bestPrice := 0, math.Inf(1)
	for i, p := range programs {
		price := p.Price
		if price <= 0 {
			price = math.Inf(1)
		}
		if price < bestPrice {
			best, bestPrice = i, price
		}
	}
	return best
}

func mostBudgetPlaces(programs []domain.Program) int {
	best, bestPlaces := 0, -1
	for i, p := range programs {
		if p.BudgetPlaces > bestPlaces {
			best, bestPlaces = i, p.BudgetPlaces
		}
	}
	return best
}

// DurationYears reads the first integer of a duration string like "4 года".
// Unparsable durations rank last.
func DurationYears(duration string) int {
	match := firstIntRegex.FindString(duration)
	if match == "" {
		return unknownDuration
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return unknownDuration
	}
	return n
}

func shortestDuration(programs []domain.Program) int {
	best, bestYears := 0, math.MaxInt
	for i, p := range programs {
		if years := DurationYears(p.Duration); years < bestYears {
			best, bestYears = i, years
		}
	}
	return best
}

// careerKeywords marks titles assumed to have strong job demand. This is a
// keyword approximation, not a labour-market metric.
var careerKeywords = []string{"Информатика", "IT", "Программирование"}

func careerProspects(programs []domain.Program) int {
	for i, p := range programs {
		for _, kw := range careerKeywords {
			if strings.Contains(p.Title, kw) {
				return i
			}
		}
	}
	return 0
}

var winnerRules = []struct {
	title, reason string
	pick          reducer
}{
	{"Наиболее бюджетный вариант", "Наименьшая стоимость обучения", cheapest},
	{"Наибольшее количество бюджетных мест", "Высокий шанс поступления на бюджет", mostBudgetPlaces},
	{"Самый короткий срок обучения", "Быстрее завершить образование", shortestDuration},
	{"Лучшие карьерные перспективы", "Высокий спрос на рынке труда", careerProspects},
}

var recommendationRules = []struct {
	title, reason string
	pick          reducer
}{
	{"Для экономии средств", "Выберите программу с наименьшей стоимостью, если бюджет ограничен", cheapest},
	{"Для поступления на бюджет", "Больше бюджетных мест означает больший шанс поступления", mostBudgetPlaces},
	{"Для быстрого старта карьеры", "Короткий срок обучения позволит раньше начать работать", shortestDuration},
}

// Summarize computes every summary category over the selection snapshot.
// Each category is reduced independently; nothing is cached between calls.
func Summarize(selection []domain.Program) (Summary, error) {
	if err := RequireComparable(selection); err != nil {
		return Summary{}, err
	}

	verdict := func(title, reason string, pick reducer) Verdict {
		p := selection[pick(selection)]
		return Verdict{Title: title, Reason: reason, ProgramID: p.ID, Program: p}
	}

	var s Summary
	for _, rule := range winnerRules {
		s.Winners = append(s.Winners, verdict(rule.title, rule.reason, rule.pick))
	}
	for _, rule := range recommendationRules {
		s.Recommendations = append(s.Recommendations, verdict(rule.title, rule.reason, rule.pick))
	}
	return s, nil
}
