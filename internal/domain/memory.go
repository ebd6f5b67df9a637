package domain

// memoryListCap bounds every list-valued fact category to its most recent
// entries.
const memoryListCap = 20

// MergeMemory folds newly learned facts into an existing memory map without
// ever discarding information the new set does not mention. Scalar categories
// are replaced, list categories are concatenated with existing order
// preserved and new distinct values appended, then truncated to the most
// recent entries. Empty incoming values (nil, empty string, empty list) are
// ignored so a sparse extraction never wipes stored facts.
func MergeMemory(existing, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}

	for key, value := range incoming {
		if isEmptyFact(value) {
			continue
		}

		current, ok := merged[key]
		if !ok {
			merged[key] = value
			continue
		}

		newList, newIsList := asList(value)
		curList, curIsList := asList(current)
		if newIsList && curIsList {
			merged[key] = appendDistinct(curList, newList)
			continue
		}

		merged[key] = value
	}
	return merged
}

func isEmptyFact(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

// asList normalizes the two list shapes that reach the merge: []any from
// JSON decoding and []string from typed callers.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func appendDistinct(existing, incoming []any) []any {
	combined := make([]any, len(existing), len(existing)+len(incoming))
	copy(combined, existing)
	for _, v := range incoming {
		if !containsValue(combined, v) {
			combined = append(combined, v)
		}
	}
	if len(combined) > memoryListCap {
		combined = combined[len(combined)-memoryListCap:]
	}
	return combined
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
