package proposal

// DeepCopy copies the JSON-shaped value v so that the result shares no
// maps or slices with it.
func DeepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = DeepCopy(item)
		}
		return out
	default:
		return v
	}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = DeepCopy(v)
	}
	return out
}

// CopyMap is DeepCopy for objects.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	return copyMap(m)
}
