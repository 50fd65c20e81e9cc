package session

// Typed accessors for session values. Session data round-trips through JSON,
// so numbers come back as float64 and lists as []any; these helpers keep the
// default handling in one place instead of scattered across the agents.

func Float(data map[string]any, key string, def float64) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func Bool(data map[string]any, key string, def bool) bool {
	if v, ok := data[key].(bool); ok {
		return v
	}
	return def
}

func String(data map[string]any, key string, def string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return def
}

func Map(data map[string]any, key string) map[string]any {
	if v, ok := data[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

func List(data map[string]any, key string) []any {
	if v, ok := data[key].([]any); ok {
		return v
	}
	return []any{}
}
