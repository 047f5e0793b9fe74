package filter

import (
	"clipshelf/internal/field"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Sort is an explicit column/direction pair pushed down to the query layer.
// Key is either a built-in item column or "f<id>" for a custom field.
type Sort struct {
	Key  string `json:"key"`
	Desc bool   `json:"desc"`
}

var builtinSortKeys = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
}

// State is the full filter/selection/sort state of a listing view. It
// round-trips through a flat string parameter set so it can live in a
// shareable link.
type State struct {
	Filters []ActiveFilter `json:"filters"`
	TagIDs  []uint64       `json:"tag_ids"`
	Sort    Sort           `json:"sort"`
}

// Encode flattens the state into URL parameters:
//
//	f<fieldID>=<op>:<payload>   one per filter
//	tags=1,2,3                  selected tag ids
//	sort=<key>.<asc|desc>
func Encode(state State) url.Values {
	values := url.Values{}

	for _, f := range state.Filters {
		values.Set("f"+strconv.FormatUint(f.FieldID, 10), encodeFilterValue(f))
	}

	if len(state.TagIDs) > 0 {
		parts := make([]string, 0, len(state.TagIDs))
		for _, id := range state.TagIDs {
			parts = append(parts, strconv.FormatUint(id, 10))
		}
		values.Set("tags", strings.Join(parts, ","))
	}

	if state.Sort.Key != "" {
		dir := "asc"
		if state.Sort.Desc {
			dir = "desc"
		}
		values.Set("sort", state.Sort.Key+"."+dir)
	}

	return values
}

func encodeFilterValue(f ActiveFilter) string {
	switch f.Operator {
	case OpBetween:
		return fmt.Sprintf("between:%d,%d", f.NumberMin, f.NumberMax)
	case OpGte, OpLte, OpEq:
		return fmt.Sprintf("%s:%d", f.Operator, f.Number)
	case OpIn:
		return "in:" + f.Choice
	case OpContains:
		return "contains:" + f.Text
	case OpIs:
		return fmt.Sprintf("is:%t", f.Bool)
	}
	return string(f.Operator) + ":"
}

// Decode reconstructs a State from parameters, validating every filter
// against the catalog. Unknown or stale field references are dropped;
// malformed or invalid filters are reported and skipped.
func Decode(params url.Values, catalog map[uint64]field.CustomField) (State, []ValidationError) {
	var state State
	var rejected []ValidationError
	var raw []ActiveFilter

	for key := range params {
		if !strings.HasPrefix(key, "f") {
			continue
		}
		fieldID, err := strconv.ParseUint(key[1:], 10, 64)
		if err != nil {
			continue
		}

		f, verr := decodeFilterValue(fieldID, params.Get(key))
		if verr != nil {
			rejected = append(rejected, *verr)
			continue
		}
		raw = append(raw, f)
	}

	state.Filters, rejected = appendNormalized(raw, catalog, rejected)

	if tags := params.Get("tags"); tags != "" {
		for _, part := range strings.Split(tags, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil {
				continue
			}
			state.TagIDs = append(state.TagIDs, id)
		}
	}

	state.Sort = decodeSort(params.Get("sort"), catalog)

	return state, rejected
}

func appendNormalized(raw []ActiveFilter, catalog map[uint64]field.CustomField, rejected []ValidationError) ([]ActiveFilter, []ValidationError) {
	valid, errs := NormalizeAll(raw, catalog)
	return valid, append(rejected, errs...)
}

func decodeFilterValue(fieldID uint64, value string) (ActiveFilter, *ValidationError) {
	f := ActiveFilter{FieldID: fieldID}

	op, payload, found := strings.Cut(value, ":")
	if !found {
		return f, invalid(fieldID, "malformed filter value %q", value)
	}
	f.Operator = Operator(op)

	switch f.Operator {
	case OpGte, OpLte, OpEq:
		n, err := strconv.Atoi(payload)
		if err != nil {
			return f, invalid(fieldID, "%q is not a number", payload)
		}
		f.Number = n
	case OpBetween:
		minStr, maxStr, found := strings.Cut(payload, ",")
		if !found {
			return f, invalid(fieldID, "between needs two bounds, got %q", payload)
		}
		min, err1 := strconv.Atoi(strings.TrimSpace(minStr))
		max, err2 := strconv.Atoi(strings.TrimSpace(maxStr))
		if err1 != nil || err2 != nil {
			return f, invalid(fieldID, "between bounds %q are not numbers", payload)
		}
		f.NumberMin, f.NumberMax = min, max
	case OpIn:
		f.Choice = payload
	case OpContains:
		f.Text = payload
	case OpIs:
		b, err := strconv.ParseBool(payload)
		if err != nil {
			return f, invalid(fieldID, "%q is not a boolean", payload)
		}
		f.Bool = b
	default:
		return f, invalid(fieldID, "unknown operator %q", op)
	}

	return f, nil
}

func decodeSort(raw string, catalog map[uint64]field.CustomField) Sort {
	if raw == "" {
		return Sort{}
	}

	key := raw
	desc := false
	if k, dir, found := strings.Cut(raw, "."); found {
		key = k
		desc = dir == "desc"
	}

	if builtinSortKeys[key] {
		return Sort{Key: key, Desc: desc}
	}

	// Custom-field sort keys are validated against the catalog so a deleted
	// field degrades to the default order instead of a broken query.
	if strings.HasPrefix(key, "f") {
		if id, err := strconv.ParseUint(key[1:], 10, 64); err == nil {
			if _, ok := catalog[id]; ok {
				return Sort{Key: key, Desc: desc}
			}
		}
	}

	return Sort{}
}

// SortFieldID extracts the custom-field id from a Sort key, if any.
func (s Sort) SortFieldID() (uint64, bool) {
	if !strings.HasPrefix(s.Key, "f") {
		return 0, false
	}
	id, err := strconv.ParseUint(s.Key[1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
