package proposal

import "fmt"

// ArrayPolicy decides what happens when two sources both carry a list.
type ArrayPolicy int

const (
	// ArraysReplace lets the later list win wholesale.
	ArraysReplace ArrayPolicy = iota
	// ArraysConcat appends the later list to the earlier one.
	ArraysConcat
)

func ParseArrayPolicy(s string) (ArrayPolicy, error) {
	switch s {
	case "", "replace":
		return ArraysReplace, nil
	case "concat":
		return ArraysConcat, nil
	default:
		return ArraysReplace, fmt.Errorf("unknown array merge policy %q", s)
	}
}

func (p ArrayPolicy) String() string {
	if p == ArraysConcat {
		return "concat"
	}
	return "replace"
}

// Merger combines layered documents.
type Merger struct {
	Arrays ArrayPolicy
}

// Merge folds sources left to right, later values winning. Objects merge
// recursively, absent keys never overwrite and an explicit null does. Nil
// sources are skipped. The result shares nothing with the sources.
func (m Merger) Merge(sources ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, src := range sources {
		if src == nil {
			continue
		}
		m.mergeInto(out, src)
	}
	return out
}

// dst only ever holds values copied by this merger, so it is safe to mutate.
func (m Merger) mergeInto(dst, src map[string]interface{}) {
	for k, sv := range src {
		switch s := sv.(type) {
		case map[string]interface{}:
			if d, ok := dst[k].(map[string]interface{}); ok {
				m.mergeInto(d, s)
			} else {
				dst[k] = copyMap(s)
			}
		case []interface{}:
			if m.Arrays == ArraysConcat {
				if d, ok := dst[k].([]interface{}); ok {
					dst[k] = append(d, DeepCopy(s).([]interface{})...)
					continue
				}
			}
			dst[k] = DeepCopy(s)
		default:
			dst[k] = sv
		}
	}
}

// DeepMerge merges with the replace policy.
func DeepMerge(sources ...map[string]interface{}) map[string]interface{} {
	return Merger{Arrays: ArraysReplace}.Merge(sources...)
}
