package iacmetrics

import "fmt"

// asMapping normalizes the two map shapes produced by the YAML decoder.
func asMapping(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		converted := make(map[string]any, len(typed))
		for key, item := range typed {
			converted[fmt.Sprint(key)] = item
		}
		return converted, true
	default:
		return nil, false
	}
}

func asSequence(value any) []any {
	sequence, _ := value.([]any)
	return sequence
}

// collectionSize counts the entries of a mapping or a sequence.
func collectionSize(value any) int {
	if mapping, isMapping := asMapping(value); isMapping {
		return len(mapping)
	}
	return len(asSequence(value))
}

func countKeys(value any) int {
	switch typed := value.(type) {
	case []any:
		total := 0
		for _, item := range typed {
			total += countKeys(item)
		}
		return total
	default:
		mapping, isMapping := asMapping(value)
		if !isMapping {
			return 0
		}
		total := len(mapping)
		for _, item := range mapping {
			total += countKeys(item)
		}
		return total
	}
}

// visitMappings calls visit for every mapping nested in value, depth first.
func visitMappings(value any, visit func(mapping map[string]any)) {
	switch typed := value.(type) {
	case []any:
		for _, item := range typed {
			visitMappings(item, visit)
		}
	default:
		mapping, isMapping := asMapping(value)
		if !isMapping {
			return
		}
		visit(mapping)
		for _, item := range mapping {
			visitMappings(item, visit)
		}
	}
}

// visitStrings calls visit for every string scalar nested in value.
func visitStrings(value any, visit func(text string)) {
	switch typed := value.(type) {
	case string:
		visit(typed)
	case []any:
		for _, item := range typed {
			visitStrings(item, visit)
		}
	default:
		mapping, isMapping := asMapping(value)
		if !isMapping {
			return
		}
		for _, item := range mapping {
			visitStrings(item, visit)
		}
	}
}
