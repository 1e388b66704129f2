package qdrant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	filterOpAnd = "$and"
	filterOpIn  = "$in"
	filterOpEq  = "$eq"
)

// translateFilterMap converts the Pinecone-style metadata filter used across
// the codebase ({"field": value} or {"field": {"$eq"|"$in": ...}}, with $and)
// into Qdrant "must" conditions.
func translateFilterMap(filter map[string]any) ([]any, error) {
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	must := make([]any, 0, len(keys))
	for _, key := range keys {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		value := filter[key]
		if strings.HasPrefix(k, "$") {
			if strings.ToLower(k) != filterOpAnd {
				return nil, opErr("filter_translate", OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported top-level filter operator %q", k), nil)
			}
			items, ok := value.([]any)
			if !ok {
				return nil, opErr("filter_translate", OperationErrorValidation, "operator $and expects array of objects", nil)
			}
			for _, item := range items {
				obj, ok := item.(map[string]any)
				if !ok {
					return nil, opErr("filter_translate", OperationErrorValidation, "operator $and expects array of objects", nil)
				}
				sub, err := translateFilterMap(obj)
				if err != nil {
					return nil, err
				}
				must = append(must, sub...)
			}
			continue
		}
		cond, err := translateFieldFilter(k, value)
		if err != nil {
			return nil, err
		}
		must = append(must, cond)
	}
	return must, nil
}

func translateFieldFilter(field string, value any) (map[string]any, error) {
	ops, isOps := value.(map[string]any)
	if !isOps {
		scalar, ok := toScalarValue(value)
		if !ok {
			return nil, opErr("filter_translate", OperationErrorValidation, fmt.Sprintf("field %q expects scalar value or operator object", field), nil)
		}
		return matchCondition(field, scalar), nil
	}
	if len(ops) != 1 {
		return nil, opErr("filter_translate", OperationErrorValidation, fmt.Sprintf("field %q expects exactly one operator", field), nil)
	}
	for op, opVal := range ops {
		switch strings.ToLower(strings.TrimSpace(op)) {
		case filterOpEq:
			scalar, ok := toScalarValue(opVal)
			if !ok {
				return nil, opErr("filter_translate", OperationErrorValidation, fmt.Sprintf("operator $eq for field %q expects scalar value", field), nil)
			}
			return matchCondition(field, scalar), nil
		case filterOpIn:
			raw, ok := opVal.([]any)
			if !ok || len(raw) == 0 {
				return nil, opErr("filter_translate", OperationErrorValidation, fmt.Sprintf("operator $in for field %q expects a non-empty array", field), nil)
			}
			values := make([]any, 0, len(raw))
			for _, v := range raw {
				scalar, ok := toScalarValue(v)
				if !ok {
					return nil, opErr("filter_translate", OperationErrorValidation, fmt.Sprintf("operator $in for field %q expects scalars", field), nil)
				}
				values = append(values, scalar)
			}
			return map[string]any{"key": field, "match": map[string]any{"any": values}}, nil
		default:
			return nil, opErr("filter_translate", OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported filter operator %q for field %q", op, field), nil)
		}
	}
	return nil, nil
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}

func toScalarValue(value any) (any, bool) {
	switch typed := value.(type) {
	case string, bool, int, int64, float64:
		return typed, true
	case int32:
		return int(typed), true
	case float32:
		return float64(typed), true
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i, true
		}
		if f, err := typed.Float64(); err == nil {
			return f, true
		}
		return nil, false
	default:
		return nil, false
	}
}
