package proposal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(DefaultListCaps(), DefaultListCap)
}

func TestNormalize_NonObjectYieldsDefaults(t *testing.T) {
	n := newTestNormalizer()
	for _, v := range []interface{}{nil, "text", 3.0, []interface{}{1.0}, true} {
		got := n.Normalize(v, DefaultProposal())
		if diff := cmp.Diff(DefaultProposal(), got); diff != "" {
			t.Errorf("Normalize(%v) mismatch (-want +got):\n%s", v, diff)
		}
	}
}

func TestNormalize_Completeness(t *testing.T) {
	n := newTestNormalizer()
	inputs := []map[string]interface{}{
		{},
		{"meta": "broken"},
		{"meta": map[string]interface{}{"style": nil}},
		{"meta": map[string]interface{}{"style": map[string]interface{}{"designSpec": []interface{}{}}}},
		{"pricing": map[string]interface{}{"items": "none"}},
	}
	for _, in := range inputs {
		got := n.Normalize(in, DefaultProposal())
		assert.Empty(t, MissingKeys(got, DefaultProposal()), "input %v", in)
	}
}

func TestNormalize_PassThroughAndCoercion(t *testing.T) {
	n := newTestNormalizer()
	got := n.Normalize(map[string]interface{}{
		"custom": map[string]interface{}{"k": "v"},
		"meta": map[string]interface{}{
			"title": 2024.0,
			"style": map[string]interface{}{
				"designSpec": map[string]interface{}{
					"radius":  map[string]interface{}{"panel": "20", "card": "round"},
					"texture": map[string]interface{}{"intensity": nil},
				},
			},
		},
	}, DefaultProposal())

	assert.Equal(t, map[string]interface{}{"k": "v"}, got["custom"])
	meta := got["meta"].(map[string]interface{})
	assert.Equal(t, "2024", meta["title"])

	design := DesignSpecOf(got)
	radius := design["radius"].(map[string]interface{})
	assert.Equal(t, 20.0, radius["panel"])
	assert.Equal(t, 12.0, radius["card"], "non numeric string falls back to default")
	assert.Equal(t, 14.0, radius["bubble"])

	texture := design["texture"].(map[string]interface{})
	v, ok := texture["intensity"]
	assert.True(t, ok)
	assert.Nil(t, v, "null leaves are preserved")
}

func TestNormalize_BoundsLists(t *testing.T) {
	n := newTestNormalizer()
	items := make([]interface{}, 100)
	phases := make([]interface{}, 50)
	extra := make([]interface{}, 150)
	for i := range items {
		items[i] = map[string]interface{}{"label": "x"}
	}
	for i := range phases {
		phases[i] = "p"
	}
	for i := range extra {
		extra[i] = i
	}

	got := n.Normalize(map[string]interface{}{
		"pricing": map[string]interface{}{"items": items},
		"phases":  phases,
		"notes":   extra,
	}, DefaultProposal())

	assert.Len(t, got["pricing"].(map[string]interface{})["items"], 40)
	assert.Len(t, got["phases"], 20)
	assert.Len(t, got["notes"], DefaultListCap)
	assert.Len(t, items, 100, "input untouched")
}

func TestNormalize_CapMatchesNestedPath(t *testing.T) {
	n := NewNormalizer(map[string]int{"actions": 2, "pricing.items": 1}, 5)
	got := n.Normalize(map[string]interface{}{
		"actions": []interface{}{1.0, 2.0, 3.0},
		"proposalSpec": map[string]interface{}{
			"pricing": map[string]interface{}{"items": []interface{}{1.0, 2.0}},
		},
	}, map[string]interface{}{"actions": []interface{}{}})

	assert.Len(t, got["actions"], 2)
	spec := got["proposalSpec"].(map[string]interface{})
	assert.Len(t, spec["pricing"].(map[string]interface{})["items"], 1)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	n := newTestNormalizer()
	in := map[string]interface{}{"meta": map[string]interface{}{"title": "T"}}
	got := n.Normalize(in, DefaultProposal())
	got["meta"].(map[string]interface{})["title"] = "changed"
	assert.Equal(t, "T", in["meta"].(map[string]interface{})["title"])
	assert.Len(t, in["meta"], 1)
}

func TestMissingKeys(t *testing.T) {
	missing := MissingKeys(map[string]interface{}{
		"meta": map[string]interface{}{"lang": "fr"},
	}, map[string]interface{}{
		"meta":  map[string]interface{}{"lang": "", "title": ""},
		"terms": []interface{}{},
	})
	require.Equal(t, []string{"meta.title", "terms"}, missing)
	assert.Equal(t, []string{"$"}, MissingKeys("x", map[string]interface{}{"a": 1.0}))
}

func TestNormalizer_Prune(t *testing.T) {
	n := newTestNormalizer()
	got := n.Prune(map[string]interface{}{
		"meta": map[string]interface{}{
			"title": map[string]interface{}{"fr": "Refonte site"},
			"lang":  "en",
			"style": "flat",
		},
		"letter": map[string]interface{}{"body": []interface{}{"Para 1", "Para 2"}, "subject": 12.0},
		"scope":  nil,
		"custom": []interface{}{"x"},
	}, DefaultProposal())

	want := map[string]interface{}{
		"meta":   map[string]interface{}{"lang": "en"},
		"letter": map[string]interface{}{"subject": "12"},
		"scope":  nil,
		"custom": []interface{}{"x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Prune mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, n.Prune("text", DefaultProposal()))
}
