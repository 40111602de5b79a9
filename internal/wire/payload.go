package wire

// Small typed accessors over a decoded payload map, used by every handler
// to turn "wrong type" or "missing key" into a uniform payload_invalid
// outcome without repeating type assertions everywhere.

// String returns payload[key] as a string, or ok=false if absent/wrong type.
func String(payload map[string]any, key string) (string, bool) {
	v, ok := payload[key].(string)
	return v, ok
}

// Int returns payload[key] as an int, or ok=false if absent/wrong type/non-integral.
func Int(payload map[string]any, key string) (int, bool) {
	if v, ok := payload[key].(int); ok {
		return v, true
	}
	return asInt(payload[key])
}

// Int64 returns payload[key] as an int64, or ok=false if absent/wrong type/non-integral.
func Int64(payload map[string]any, key string) (int64, bool) {
	switch v := payload[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return asInt64(payload[key])
}

// StringSlice returns payload[key] as a []string, or ok=false if the key is
// absent or any element is not a string.
func StringSlice(payload map[string]any, key string) ([]string, bool) {
	if ss, ok := payload[key].([]string); ok {
		return ss, true
	}
	raw, ok := payload[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Object returns payload[key] as a map[string]any, or ok=false if
// absent/wrong type.
func Object(payload map[string]any, key string) (map[string]any, bool) {
	v, ok := payload[key].(map[string]any)
	return v, ok
}

// ObjectSlice returns payload[key] as a []map[string]any, or ok=false if the
// key is absent or any element is not a JSON object.
func ObjectSlice(payload map[string]any, key string) ([]map[string]any, bool) {
	if ms, ok := payload[key].([]map[string]any); ok {
		return ms, true
	}
	raw, ok := payload[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}
