package field

// MergeFields computes the field list visible on an item: workspace-default
// fields first, in schema order, then category fields that aren't already
// present. A field living in both schemas counts as a workspace field.
func MergeFields(workspace, category []CustomField) []CustomField {
	merged := make([]CustomField, 0, len(workspace)+len(category))
	seen := make(map[uint64]bool, len(workspace))

	for _, f := range workspace {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		merged = append(merged, f)
	}

	for _, f := range category {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		merged = append(merged, f)
	}

	return merged
}

// CategoryOnlyFieldIDs returns the ids of fields that belong exclusively to
// the category component of the merge. These are the values that go dormant
// when the category is detached, and therefore the ones worth snapshotting.
func CategoryOnlyFieldIDs(workspace, category []CustomField) []uint64 {
	inWorkspace := make(map[uint64]bool, len(workspace))
	for _, f := range workspace {
		inWorkspace[f.ID] = true
	}

	ids := make([]uint64, 0, len(category))
	seen := make(map[uint64]bool, len(category))
	for _, f := range category {
		if inWorkspace[f.ID] || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		ids = append(ids, f.ID)
	}

	return ids
}
