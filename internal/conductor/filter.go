package conductor

import "strings"

// applyFilters selects the subsequence of records for which every present
// predicate holds. Pure: input records are never mutated, order is
// preserved, and an empty spec returns the input unchanged.
func applyFilters(records []EnrichedRunner, f FilterSpec) []EnrichedRunner {
	if f.Empty() {
		return records
	}

	filtered := make([]EnrichedRunner, 0, len(records))
	for _, r := range records {
		if matches(r, f) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func matches(r EnrichedRunner, f FilterSpec) bool {
	for _, tag := range f.Tags {
		if !contains(r.TagList, tag) {
			return false
		}
	}
	if f.VersionPrefix != "" && !strings.HasPrefix(r.Version, f.VersionPrefix) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Type != "" && r.RunnerType != f.Type {
		return false
	}
	if f.Paused != nil && r.Paused != *f.Paused {
		return false
	}
	return true
}
