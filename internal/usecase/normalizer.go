package usecase

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/unicatalog/backend/internal/domain"
)

// Markers that separate the program title from its profile in a full name.
// Checked in this order.
var profileMarkers = []string{"Профиль", "Специализация"}

// profileQuotes are stripped from the extracted profile
var profileQuotes = strings.NewReplacer(`"`, "", "«", "", "»", "", "“", "", "”", "")

// levelRule maps free-text keywords onto a level
type levelRule struct {
	level    domain.Level
	keywords []string
}

// levelRules is evaluated top to bottom; the first rule with a matching keyword wins.
// This is a lossy heuristic: level strings phrased in a way none of the keywords
// anticipate silently fall back to bachelor.
var levelRules = []levelRule{
	{domain.LevelBachelor, []string{"бакалавр", "bachelor"}},
	{domain.LevelMaster, []string{"магистр", "master"}},
	{domain.LevelSpecialist, []string{"специалитет", "specialist"}},
	{domain.LevelPostgraduate, []string{"аспирант", "postgraduate"}},
	{domain.LevelSecondary, []string{"среднее профессиональное", "колледж", "secondary"}},
}

// InferLevel classifies an education level string. Unmatched or empty text yields bachelor.
func InferLevel(text string) domain.Level {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return domain.LevelBachelor
	}
	for _, rule := range levelRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.level
			}
		}
	}
	return domain.LevelBachelor
}

// SplitFullName extracts title and profile from a "<code> <title> Профиль «<profile>»" string.
// Without a marker both title and profile are the full name minus the code.
func SplitFullName(fullName, code string) (title, profile string) {
	for _, marker := range profileMarkers {
		left, right, found := strings.Cut(fullName, marker)
		if !found {
			continue
		}
		title = strings.TrimSpace(removeCode(left, code))
		profile = strings.TrimSpace(profileQuotes.Replace(right))
		return title, profile
	}

	title = strings.TrimSpace(removeCode(fullName, code))
	return title, title
}

func removeCode(s, code string) string {
	if code == "" {
		return s
	}
	return strings.Replace(s, code, "", 1)
}

// NormalizerConfig holds settings for derived field computation
type NormalizerConfig struct {
	// DetailPage is the relative page that renders program details
	DetailPage string
	// InternalHost marks links that point back at the university site;
	// such links are replaced by the local detail page.
	InternalHost string
}

// Normalizer converts partial records into canonical programs
type Normalizer struct {
	detailPage   string
	internalHost string
	printer      *message.Printer
}

// NewNormalizer creates a normalizer with the given configuration
func NewNormalizer(config NormalizerConfig) *Normalizer {
	detailPage := config.DetailPage
	if detailPage == "" {
		detailPage = "program-detail.html"
	}

	return &Normalizer{
		detailPage:   detailPage,
		internalHost: config.InternalHost,
		printer:      message.NewPrinter(language.Russian),
	}
}

// FromExtended builds a partial program from a roster record
func (n *Normalizer) FromExtended(r domain.RawExtendedRecord) (domain.Program, error) {
	code := strings.TrimSpace(r.Code)
	if code == "" || r.ID <= 0 {
		return domain.Program{}, fmt.Errorf("%w: extended record id=%d code=%q", domain.ErrMalformedRecord, r.ID, r.Code)
	}

	title, profile := SplitFullName(r.FullName, code)

	return domain.Program{
		ID:             r.ID,
		Code:           code,
		Title:          title,
		Profile:        profile,
		FullName:       strings.TrimSpace(r.FullName),
		EducationLevel: r.EducationLevel,
		Level:          InferLevel(r.EducationLevel),
		Faculty:        r.Faculty,
		Link:           r.Link,
		Source:         domain.SourceExtendedOnly,
	}, nil
}

// FromMain builds a partial program from a main-source record
func (n *Normalizer) FromMain(r domain.RawMainRecord) (domain.Program, error) {
	code := strings.TrimSpace(r.Code)
	if code == "" {
		return domain.Program{}, fmt.Errorf("%w: main record without code (title=%q)", domain.ErrMalformedRecord, r.Title)
	}

	return domain.Program{
		ID:             r.ID,
		Code:           code,
		Title:          strings.TrimSpace(r.Title),
		EducationLevel: r.EducationLevel,
		Level:          InferLevel(r.EducationLevel),
		Faculty:        r.Faculty,
		Form:           r.Form,
		Duration:       r.Duration,
		BudgetPlaces:   r.BudgetPlaces,
		Price:          r.Price,
		Description:    r.Description,
		Link:           r.Link,
		Updated:        r.Updated,
		Source:         domain.SourceMainOnly,
	}, nil
}

// Normalize substitutes placeholders for every absent field and computes the
// derived view fields. Applying it to an already-normalized program is a no-op.
func (n *Normalizer) Normalize(p domain.Program) domain.Program {
	p.Code = strings.TrimSpace(p.Code)
	p.Title = strings.TrimSpace(p.Title)
	p.Profile = strings.TrimSpace(p.Profile)
	p.FullName = strings.TrimSpace(p.FullName)

	if p.Title == "" {
		title, profile := SplitFullName(p.FullName, p.Code)
		p.Title = title
		if p.Profile == "" {
			p.Profile = profile
		}
	}
	if p.Title == "" {
		p.Title = domain.PlaceholderTitle
	}
	if p.Profile == "" {
		p.Profile = p.Title
	}
	if p.FullName == "" {
		p.FullName = strings.TrimSpace(p.Code + " " + p.Title)
	}

	p.EducationLevel = orPlaceholder(p.EducationLevel, domain.PlaceholderText)
	if !p.Level.Valid() {
		p.Level = InferLevel(p.EducationLevel)
	}

	p.Faculty = orPlaceholder(p.Faculty, domain.PlaceholderText)
	p.Form = orPlaceholder(p.Form, domain.PlaceholderText)
	p.Duration = orPlaceholder(p.Duration, domain.PlaceholderText)
	p.Description = orPlaceholder(p.Description, domain.PlaceholderDescription)
	p.Link = orPlaceholder(p.Link, domain.PlaceholderLink)
	p.Updated = orPlaceholder(p.Updated, domain.PlaceholderText)

	if p.BudgetPlaces < 0 {
		p.BudgetPlaces = 0
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		p.Price = 0
	}
	if p.Source == "" {
		p.Source = domain.SourceMainOnly
	}

	p.FormattedPrice = n.FormatPrice(p.Price)
	p.DetailURL = n.detailURL(p)
	p.SearchText = strings.ToLower(strings.Join([]string{
		p.Code, p.Title, p.Profile, p.Faculty, p.FullName,
	}, " "))

	return p
}

// FormatPrice renders an annual tuition in the Russian locale, or the
// "inquire" placeholder for free/unknown prices.
func (n *Normalizer) FormatPrice(price float64) string {
	if price <= 0 {
		return domain.PlaceholderPrice
	}
	return n.printer.Sprintf("%d ₽/год", int64(math.Round(price)))
}

func (n *Normalizer) detailURL(p domain.Program) string {
	if p.Link != domain.PlaceholderLink && (n.internalHost == "" || !strings.Contains(p.Link, n.internalHost)) {
		return p.Link
	}

	query := url.Values{}
	query.Set("id", strconv.Itoa(p.ID))
	query.Set("code", p.Code)
	query.Set("title", p.Title)
	return n.detailPage + "?" + query.Encode()
}

func orPlaceholder(value, placeholder string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return placeholder
	}
	return value
}
