package proposal

import (
	"sort"
	"strconv"
	"strings"
)

const DefaultListCap = 100

// DefaultListCaps bounds the lists of a proposal document.
func DefaultListCaps() map[string]int {
	return map[string]int{
		"pricing.items": 40,
		"phases":        20,
		"milestones":    20,
		"deliverables":  30,
		"scope":         30,
		"terms":         20,
		"actions":       10,
		"history":       40,
		"decor_layers":  8,
	}
}

// Normalizer brings arbitrary JSON into the shape of a defaults template.
type Normalizer struct {
	caps       map[string]int
	defaultCap int
}

// NewNormalizer builds a Normalizer. A cap key is either a dotted path or a
// bare field name and matches any path ending with it.
func NewNormalizer(caps map[string]int, defaultCap int) *Normalizer {
	if defaultCap <= 0 {
		defaultCap = DefaultListCap
	}
	c := make(map[string]int, len(caps))
	for k, v := range caps {
		c[k] = v
	}
	return &Normalizer{caps: c, defaultCap: defaultCap}
}

// Normalize returns a new object holding every key of defaults. Extra keys
// pass through, lists are bounded and trivially convertible leaves are
// coerced to the default's type. A non-object value yields the defaults.
func (n *Normalizer) Normalize(value interface{}, defaults map[string]interface{}) map[string]interface{} {
	obj, _ := value.(map[string]interface{})
	return n.object(obj, defaults, "")
}

func (n *Normalizer) object(obj, defaults map[string]interface{}, path string) map[string]interface{} {
	out := make(map[string]interface{}, len(obj)+len(defaults))
	for k, dv := range defaults {
		p := join(path, k)
		v, ok := obj[k]
		if !ok {
			out[k] = n.bound(DeepCopy(dv), p)
			continue
		}
		out[k] = n.value(v, dv, p)
	}
	for k, v := range obj {
		if _, known := defaults[k]; known {
			continue
		}
		out[k] = n.bound(DeepCopy(v), join(path, k))
	}
	return out
}

func (n *Normalizer) value(v, dv interface{}, path string) interface{} {
	if m, ok := dv.(map[string]interface{}); ok {
		obj, _ := v.(map[string]interface{})
		return n.object(obj, m, path)
	}
	if out, ok := n.coerce(v, dv, path); ok {
		return out
	}
	return n.bound(DeepCopy(dv), path)
}

// coerce converts a leaf or list v to the type of the default dv. ok is false
// when no trivially safe conversion exists.
func (n *Normalizer) coerce(v, dv interface{}, path string) (interface{}, bool) {
	switch dv.(type) {
	case []interface{}:
		if a, ok := v.([]interface{}); ok {
			return n.bound(DeepCopy(a), path), true
		}
	case string:
		switch x := v.(type) {
		case nil, string:
			return x, true
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(x), true
		}
	case float64:
		switch x := v.(type) {
		case nil, float64:
			return x, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, true
			}
		}
	case bool:
		switch x := v.(type) {
		case nil, bool:
			return x, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, true
			}
		}
	default:
		// null default: anything goes
		return n.bound(DeepCopy(v), path), true
	}
	return nil, false
}

// Prune returns a copy of value without the keys whose values cannot take the
// shape of defaults, coercing the rest. Unlike Normalize it adds nothing, so
// merging the result over an earlier layer keeps that layer's value wherever
// this one was unusable. Explicit nulls are kept. A non-object value yields nil.
func (n *Normalizer) Prune(value interface{}, defaults map[string]interface{}) map[string]interface{} {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	return n.prune(obj, defaults, "")
}

func (n *Normalizer) prune(obj, defaults map[string]interface{}, path string) map[string]interface{} {
	out := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		p := join(path, k)
		dv, known := defaults[k]
		if !known || v == nil {
			out[k] = n.bound(DeepCopy(v), p)
			continue
		}
		if dm, ok := dv.(map[string]interface{}); ok {
			if m, ok := v.(map[string]interface{}); ok {
				out[k] = n.prune(m, dm, p)
			}
			continue
		}
		if cv, ok := n.coerce(v, dv, p); ok {
			out[k] = cv
		}
	}
	return out
}

// bound truncates lists in v, which must already be a private copy.
func (n *Normalizer) bound(v interface{}, path string) interface{} {
	switch t := v.(type) {
	case []interface{}:
		if max := n.capFor(path); len(t) > max {
			t = t[:max]
		}
		for i, item := range t {
			t[i] = n.bound(item, path)
		}
		return t
	case map[string]interface{}:
		for k, item := range t {
			t[k] = n.bound(item, join(path, k))
		}
		return t
	default:
		return v
	}
}

func (n *Normalizer) capFor(path string) int {
	best, bestLen := n.defaultCap, -1
	for key, max := range n.caps {
		if (path == key || strings.HasSuffix(path, "."+key)) && len(key) > bestLen {
			best, bestLen = max, len(key)
		}
	}
	return best
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// MissingKeys lists the dotted paths of defaults absent from value, sorted.
func MissingKeys(value interface{}, defaults map[string]interface{}) []string {
	var missing []string
	collectMissing(value, defaults, "", &missing)
	sort.Strings(missing)
	return missing
}

func collectMissing(value interface{}, defaults map[string]interface{}, path string, out *[]string) {
	obj, ok := value.(map[string]interface{})
	if !ok {
		*out = append(*out, pathOrRoot(path))
		return
	}
	for k, dv := range defaults {
		v, present := obj[k]
		if !present {
			*out = append(*out, join(path, k))
			continue
		}
		if dm, ok := dv.(map[string]interface{}); ok {
			collectMissing(v, dm, join(path, k), out)
		}
	}
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
