package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Placeholders substituted for absent source data
const (
	PlaceholderText        = "—"
	PlaceholderLink        = "#"
	PlaceholderDescription = "Подробная информация о программе будет доступна позже."
	PlaceholderTitle       = "Название не указано"
	PlaceholderPrice       = "Уточняйте"
)

// Level is the normalized education level of a program
type Level string

const (
	LevelBachelor     Level = "bachelor"
	LevelMaster       Level = "master"
	LevelSpecialist   Level = "specialist"
	LevelPostgraduate Level = "postgraduate"
	LevelSecondary    Level = "secondary"
)

var levelNames = map[Level]string{
	LevelBachelor:     "Бакалавриат",
	LevelMaster:       "Магистратура",
	LevelSpecialist:   "Специалитет",
	LevelPostgraduate: "Аспирантура",
	LevelSecondary:    "Среднее профессиональное",
}

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// DisplayName returns the Russian label of the level
func (l Level) DisplayName() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return string(l)
}

// Source tags where a merged program came from
type Source string

const (
	SourceMerged       Source = "merged"
	SourceExtendedOnly Source = "extended_only"
	SourceMainOnly     Source = "main_only"
)

// Program is the canonical catalog record. Every field is populated after normalization.
type Program struct {
	ID             int     `json:"id"`
	Code           string  `json:"code"`
	Title          string  `json:"title"`
	Profile        string  `json:"profile"`
	FullName       string  `json:"full_name"`
	EducationLevel string  `json:"education_level"`
	Level          Level   `json:"level"`
	Faculty        string  `json:"faculty"`
	Form           string  `json:"form"`
	Duration       string  `json:"duration"`
	BudgetPlaces   int     `json:"budgetPlaces"`
	Price          float64 `json:"price"`
	Description    string  `json:"description"`
	Link           string  `json:"link"`
	Updated        string  `json:"updated"`
	HasDetails     bool    `json:"hasDetails"`
	Source         Source  `json:"source"`

	// Derived once per normalization pass
	FormattedPrice string `json:"formattedPrice"`
	DetailURL      string `json:"detailUrl"`
	SearchText     string `json:"searchText"`
}

// Slot projects the program onto the compact handoff representation
func (p Program) Slot() ComparisonSlot {
	return ComparisonSlot{
		ID:           p.ID,
		Code:         p.Code,
		Title:        p.Title,
		Faculty:      p.Faculty,
		Level:        p.Level,
		Form:         p.Form,
		Duration:     p.Duration,
		BudgetPlaces: p.BudgetPlaces,
		Price:        p.Price,
		Description:  p.Description,
	}
}

// ComparisonSlot is the compact program projection persisted in the handoff queue
type ComparisonSlot struct {
	ID           int     `json:"id"`
	Code         string  `json:"code"`
	Title        string  `json:"title"`
	Faculty      string  `json:"faculty"`
	Level        Level   `json:"level"`
	Form         string  `json:"form"`
	Duration     string  `json:"duration"`
	BudgetPlaces int     `json:"budgetPlaces"`
	Price        float64 `json:"price"`
	Description  string  `json:"description"`
}

// RawMainRecord is a detail-rich record from the main data source
type RawMainRecord struct {
	ID             int     `json:"id,omitempty"`
	Code           string  `json:"code"`
	Title          string  `json:"title"`
	Faculty        string  `json:"faculty,omitempty"`
	EducationLevel string  `json:"education_level,omitempty"`
	Form           string  `json:"form,omitempty"`
	Duration       string  `json:"duration,omitempty"`
	BudgetPlaces   int     `json:"budgetPlaces,omitempty"`
	Price          float64 `json:"price,omitempty"`
	Description    string  `json:"description,omitempty"`
	Link           string  `json:"link,omitempty"`
	Updated        string  `json:"updated,omitempty"`
}

// UnmarshalJSON accepts numeric fields encoded either as numbers or strings
// and the "level" alias for education_level.
func (r *RawMainRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID             json.RawMessage `json:"id"`
		Code           json.RawMessage `json:"code"`
		Title          string          `json:"title"`
		Faculty        string          `json:"faculty"`
		EducationLevel string          `json:"education_level"`
		Level          string          `json:"level"`
		Form           string          `json:"form"`
		Duration       json.RawMessage `json:"duration"`
		BudgetPlaces   json.RawMessage `json:"budgetPlaces"`
		Price          json.RawMessage `json:"price"`
		Description    string          `json:"description"`
		Link           string          `json:"link"`
		Updated        string          `json:"updated"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, _ := flexNumber(aux.ID)
	places, _ := flexNumber(aux.BudgetPlaces)
	price, _ := flexNumber(aux.Price)

	*r = RawMainRecord{
		ID:             int(id),
		Code:           flexString(aux.Code),
		Title:          aux.Title,
		Faculty:        aux.Faculty,
		EducationLevel: firstNonEmpty(aux.EducationLevel, aux.Level),
		Form:           aux.Form,
		Duration:       flexString(aux.Duration),
		BudgetPlaces:   int(places),
		Price:          price,
		Description:    aux.Description,
		Link:           aux.Link,
		Updated:        aux.Updated,
	}
	return nil
}

// RawExtendedRecord is a roster record from the extended data source
type RawExtendedRecord struct {
	ID             int    `json:"id"`
	Code           string `json:"code"`
	FullName       string `json:"full_name"`
	EducationLevel string `json:"education_level"`
	Faculty        string `json:"faculty"`
	Link           string `json:"link"`
}

// UnmarshalJSON resolves the id|number, full_name|name and
// education_level|category aliases.
func (r *RawExtendedRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID             json.RawMessage `json:"id"`
		Number         json.RawMessage `json:"number"`
		Code           json.RawMessage `json:"code"`
		FullName       string          `json:"full_name"`
		Name           string          `json:"name"`
		EducationLevel string          `json:"education_level"`
		Category       string          `json:"category"`
		Faculty        string          `json:"faculty"`
		Link           string          `json:"link"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, ok := flexNumber(aux.ID)
	if !ok || id == 0 {
		id, _ = flexNumber(aux.Number)
	}

	*r = RawExtendedRecord{
		ID:             int(id),
		Code:           flexString(aux.Code),
		FullName:       firstNonEmpty(aux.FullName, aux.Name),
		EducationLevel: firstNonEmpty(aux.EducationLevel, aux.Category),
		Faculty:        aux.Faculty,
		Link:           aux.Link,
	}
	return nil
}

// flexNumber decodes a JSON number or a numeric string
func flexNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// flexString decodes a JSON string or renders a JSON number as text
func flexString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
