package filter

import (
	"clipshelf/internal/field"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ratingField(id uint64, max int) field.CustomField {
	return field.CustomField{ID: id, Type: field.TypeNumericRating, Config: field.Config{MaxRating: max}}
}

func choiceField(id uint64, options ...string) field.CustomField {
	return field.CustomField{ID: id, Type: field.TypeSingleChoice, Config: field.Config{Options: options}}
}

func textField(id uint64, maxLength int) field.CustomField {
	return field.CustomField{ID: id, Type: field.TypeText, Config: field.Config{MaxLength: maxLength}}
}

func boolField(id uint64) field.CustomField {
	return field.CustomField{ID: id, Type: field.TypeBoolean}
}

func TestNormalize_RatingClamped(t *testing.T) {
	def := ratingField(1, 5)

	f, verr := Normalize(ActiveFilter{Operator: OpGte, Number: 9}, def)
	assert.Nil(t, verr)
	assert.Equal(t, 5, f.Number)

	f, verr = Normalize(ActiveFilter{Operator: OpLte, Number: -3}, def)
	assert.Nil(t, verr)
	assert.Equal(t, 1, f.Number)
}

func TestNormalize_BetweenBoundsSwapped(t *testing.T) {
	def := ratingField(1, 10)

	f, verr := Normalize(ActiveFilter{Operator: OpBetween, NumberMin: 8, NumberMax: 3}, def)

	assert.Nil(t, verr)
	assert.Equal(t, 3, f.NumberMin)
	assert.Equal(t, 8, f.NumberMax)
}

func TestNormalize_OperatorTypeMismatch(t *testing.T) {
	_, verr := Normalize(ActiveFilter{Operator: OpContains, Text: "x"}, ratingField(1, 5))
	assert.NotNil(t, verr)

	_, verr = Normalize(ActiveFilter{Operator: OpGte, Number: 3}, boolField(2))
	assert.NotNil(t, verr)

	_, verr = Normalize(ActiveFilter{Operator: OpEq, Number: 1}, textField(3, 0))
	assert.NotNil(t, verr)
}

func TestNormalize_SingleChoice(t *testing.T) {
	def := choiceField(4, "easy", "hard")

	_, verr := Normalize(ActiveFilter{Operator: OpIn, Choice: "easy"}, def)
	assert.Nil(t, verr)

	_, verr = Normalize(ActiveFilter{Operator: OpIn, Choice: "medium"}, def)
	assert.NotNil(t, verr)
}

func TestNormalize_TextQueryTooLong(t *testing.T) {
	def := textField(5, 4)

	_, verr := Normalize(ActiveFilter{Operator: OpContains, Text: "abcdef"}, def)
	assert.NotNil(t, verr)

	_, verr = Normalize(ActiveFilter{Operator: OpContains, Text: "abc"}, def)
	assert.Nil(t, verr)
}

func TestNormalizeAll_StaleFilterDroppedSilently(t *testing.T) {
	catalog := map[uint64]field.CustomField{1: ratingField(1, 5)}
	filters := []ActiveFilter{
		{FieldID: 1, Operator: OpGte, Number: 3},
		{FieldID: 99, Operator: OpGte, Number: 3}, // field deleted since the link was shared
	}

	valid, rejected := NormalizeAll(filters, catalog)

	assert.Len(t, valid, 1)
	assert.Equal(t, uint64(1), valid[0].FieldID)
	assert.Empty(t, rejected)
}

func TestNormalizeAll_InvalidReportedOthersKept(t *testing.T) {
	catalog := map[uint64]field.CustomField{
		1: ratingField(1, 5),
		2: choiceField(2, "a"),
	}
	filters := []ActiveFilter{
		{FieldID: 1, Operator: OpEq, Number: 4},
		{FieldID: 2, Operator: OpIn, Choice: "nope"},
	}

	valid, rejected := NormalizeAll(filters, catalog)

	assert.Len(t, valid, 1)
	assert.Len(t, rejected, 1)
	assert.Equal(t, uint64(2), rejected[0].FieldID)
}

func numberValue(n int) *field.FieldValue {
	return &field.FieldValue{NumberValue: &n}
}

func textValue(s string) *field.FieldValue {
	return &field.FieldValue{TextValue: &s}
}

func TestMatches_Rating(t *testing.T) {
	f := ActiveFilter{FieldID: 1, FieldType: field.TypeNumericRating, Operator: OpBetween, NumberMin: 2, NumberMax: 4}

	assert.True(t, Matches(f, numberValue(3)))
	assert.True(t, Matches(f, numberValue(2)))
	assert.True(t, Matches(f, numberValue(4)))
	assert.False(t, Matches(f, numberValue(5)))
	assert.False(t, Matches(f, nil))
	assert.False(t, Matches(f, &field.FieldValue{}))
}

func TestMatches_TextCaseInsensitive(t *testing.T) {
	f := ActiveFilter{FieldID: 1, FieldType: field.TypeText, Operator: OpContains, Text: "PASTA"}

	assert.True(t, Matches(f, textValue("best pasta recipe")))
	assert.False(t, Matches(f, textValue("pizza night")))
}

func TestMatches_Boolean(t *testing.T) {
	truthy := true
	f := ActiveFilter{FieldID: 1, FieldType: field.TypeBoolean, Operator: OpIs, Bool: true}

	assert.True(t, Matches(f, &field.FieldValue{BoolValue: &truthy}))
	assert.False(t, Matches(f, &field.FieldValue{}))
}

// Adding a filter can only shrink the matching set.
func TestMatchesAll_NarrowsMonotonically(t *testing.T) {
	values := map[uint64]*field.FieldValue{
		1: numberValue(4),
		2: textValue("weeknight pasta"),
	}

	one := []ActiveFilter{
		{FieldID: 1, FieldType: field.TypeNumericRating, Operator: OpGte, Number: 3},
	}
	two := append(one, ActiveFilter{FieldID: 2, FieldType: field.TypeText, Operator: OpContains, Text: "pasta"})
	three := append(two, ActiveFilter{FieldID: 3, FieldType: field.TypeBoolean, Operator: OpIs, Bool: true})

	assert.True(t, MatchesAll(values, one))
	assert.True(t, MatchesAll(values, two))
	assert.False(t, MatchesAll(values, three)) // no value for field 3
}

func TestMatchesAll_EmptyFilterSet(t *testing.T) {
	assert.True(t, MatchesAll(nil, nil))
}
