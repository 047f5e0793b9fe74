// Package filter validates per-field query criteria against the field
// catalog and composes them into a single AND query over items. All logic
// here is pure and in-memory; the item repository translates the validated
// filters into SQL.
package filter

import (
	"clipshelf/internal/field"
	"fmt"
	"strings"
)

type Operator string

const (
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpEq       Operator = "eq"
	OpBetween  Operator = "between"
	OpIn       Operator = "in"
	OpContains Operator = "contains"
	OpIs       Operator = "is"
)

// ActiveFilter is one validated predicate over one field. The value slot in
// use depends on the field type and operator.
type ActiveFilter struct {
	FieldID   uint64          `json:"field_id"`
	FieldType field.FieldType `json:"field_type"`
	Operator  Operator        `json:"operator"`

	Number    int    `json:"number,omitempty"`     // numeric_rating gte/lte/eq
	NumberMin int    `json:"number_min,omitempty"` // numeric_rating between
	NumberMax int    `json:"number_max,omitempty"`
	Choice    string `json:"choice,omitempty"` // single_choice in
	Text      string `json:"text,omitempty"`   // text contains
	Bool      bool   `json:"bool,omitempty"`   // boolean is
}

// ValidationError describes one rejected filter; the rest of the filter set
// stays applied.
type ValidationError struct {
	FieldID uint64 `json:"field_id"`
	Reason  string `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("filter on field %d: %s", e.FieldID, e.Reason)
}

func invalid(fieldID uint64, format string, args ...interface{}) *ValidationError {
	return &ValidationError{FieldID: fieldID, Reason: fmt.Sprintf(format, args...)}
}

// Normalize validates and corrects a filter against its field's definition.
// Corrections (rating clamped into [1, max], inverted between bounds swapped)
// are applied rather than rejected; genuine type/operator mismatches fail.
func Normalize(f ActiveFilter, def field.CustomField) (ActiveFilter, *ValidationError) {
	f.FieldID = def.ID
	f.FieldType = def.Type

	switch def.Type {
	case field.TypeNumericRating:
		max := def.Config.MaxRating
		switch f.Operator {
		case OpGte, OpLte, OpEq:
			f.Number = clampRating(f.Number, max)
		case OpBetween:
			f.NumberMin = clampRating(f.NumberMin, max)
			f.NumberMax = clampRating(f.NumberMax, max)
			// An inverted range is a correction case, never an always-false query.
			if f.NumberMin > f.NumberMax {
				f.NumberMin, f.NumberMax = f.NumberMax, f.NumberMin
			}
		default:
			return f, invalid(def.ID, "operator %q not allowed on numeric_rating", f.Operator)
		}
		return f, nil

	case field.TypeSingleChoice:
		if f.Operator != OpIn {
			return f, invalid(def.ID, "operator %q not allowed on single_choice", f.Operator)
		}
		if !def.Config.HasOption(f.Choice) {
			return f, invalid(def.ID, "%q is not a configured option", f.Choice)
		}
		return f, nil

	case field.TypeText:
		if f.Operator != OpContains {
			return f, invalid(def.ID, "operator %q not allowed on text", f.Operator)
		}
		if def.Config.MaxLength > 0 && len(f.Text) > def.Config.MaxLength {
			return f, invalid(def.ID, "query longer than field max length %d", def.Config.MaxLength)
		}
		return f, nil

	case field.TypeBoolean:
		if f.Operator != OpIs {
			return f, invalid(def.ID, "operator %q not allowed on boolean", f.Operator)
		}
		return f, nil
	}

	return f, invalid(def.ID, "unknown field type %q", def.Type)
}

func clampRating(v, max int) int {
	if v < 1 {
		return 1
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// NormalizeAll validates a filter set against the catalog. Filters whose
// field no longer exists are dropped silently so shared links self-heal;
// invalid ones are reported but never fail the remaining filters.
func NormalizeAll(filters []ActiveFilter, catalog map[uint64]field.CustomField) ([]ActiveFilter, []ValidationError) {
	valid := make([]ActiveFilter, 0, len(filters))
	var rejected []ValidationError

	for _, f := range filters {
		def, ok := catalog[f.FieldID]
		if !ok {
			continue // stale reference, drop without noise
		}
		normalized, verr := Normalize(f, def)
		if verr != nil {
			rejected = append(rejected, *verr)
			continue
		}
		valid = append(valid, normalized)
	}

	return valid, rejected
}

// Matches evaluates one filter against one stored value. A missing value
// never matches.
func Matches(f ActiveFilter, v *field.FieldValue) bool {
	if v == nil {
		return false
	}

	switch f.FieldType {
	case field.TypeNumericRating:
		if v.NumberValue == nil {
			return false
		}
		n := *v.NumberValue
		switch f.Operator {
		case OpGte:
			return n >= f.Number
		case OpLte:
			return n <= f.Number
		case OpEq:
			return n == f.Number
		case OpBetween:
			return n >= f.NumberMin && n <= f.NumberMax
		}
		return false

	case field.TypeSingleChoice:
		return v.TextValue != nil && *v.TextValue == f.Choice

	case field.TypeText:
		return v.TextValue != nil &&
			strings.Contains(strings.ToLower(*v.TextValue), strings.ToLower(f.Text))

	case field.TypeBoolean:
		return v.BoolValue != nil && *v.BoolValue == f.Bool
	}

	return false
}

// MatchesAll is the AND composition over one item's values, keyed by field id.
func MatchesAll(values map[uint64]*field.FieldValue, filters []ActiveFilter) bool {
	for _, f := range filters {
		if !Matches(f, values[f.FieldID]) {
			return false
		}
	}
	return true
}
