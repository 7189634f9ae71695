package proposal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepMerge_LaterWins(t *testing.T) {
	defaults := map[string]interface{}{
		"meta":  map[string]interface{}{"lang": "fr", "title": ""},
		"scope": []interface{}{},
	}
	prior := map[string]interface{}{
		"meta":  map[string]interface{}{"title": "Old"},
		"scope": []interface{}{"a", "b"},
	}
	extracted := map[string]interface{}{
		"meta":  map[string]interface{}{"title": "New"},
		"scope": []interface{}{"c"},
	}

	got := DeepMerge(defaults, prior, extracted)
	want := map[string]interface{}{
		"meta":  map[string]interface{}{"lang": "fr", "title": "New"},
		"scope": []interface{}{"c"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestDeepMerge_AbsentKeepsNullOverwrites(t *testing.T) {
	got := DeepMerge(
		map[string]interface{}{"a": "keep", "b": "drop"},
		map[string]interface{}{"b": nil},
	)
	assert.Equal(t, "keep", got["a"])
	v, ok := got["b"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestDeepMerge_NonObjectReplacesObject(t *testing.T) {
	got := DeepMerge(
		map[string]interface{}{"pricing": map[string]interface{}{"currency": "EUR"}},
		map[string]interface{}{"pricing": "tbd"},
	)
	assert.Equal(t, "tbd", got["pricing"])

	got = DeepMerge(
		map[string]interface{}{"pricing": "tbd"},
		map[string]interface{}{"pricing": map[string]interface{}{"currency": "USD"}},
	)
	assert.Equal(t, map[string]interface{}{"currency": "USD"}, got["pricing"])
}

func TestMerger_Concat(t *testing.T) {
	m := Merger{Arrays: ArraysConcat}
	got := m.Merge(
		map[string]interface{}{"terms": []interface{}{"a"}},
		map[string]interface{}{"terms": []interface{}{"b", "c"}},
	)
	assert.Equal(t, []interface{}{"a", "b", "c"}, got["terms"])
}

func TestDeepMerge_DoesNotAliasSources(t *testing.T) {
	prior := map[string]interface{}{
		"meta":   map[string]interface{}{"title": "Old"},
		"phases": []interface{}{map[string]interface{}{"name": "P1"}},
	}
	snapshot := CopyMap(prior)

	got := DeepMerge(DefaultProposal(), prior)
	got["meta"].(map[string]interface{})["title"] = "mutated"
	got["phases"].([]interface{})[0].(map[string]interface{})["name"] = "mutated"

	if diff := cmp.Diff(snapshot, prior); diff != "" {
		t.Errorf("source mutated (-want +got):\n%s", diff)
	}

	// A second merge over the same defaults must not see earlier results.
	again := DeepMerge(DefaultProposal(), nil)
	assert.Equal(t, "", again["meta"].(map[string]interface{})["title"])
}

func TestDeepMerge_NilSources(t *testing.T) {
	got := DeepMerge(nil, map[string]interface{}{"a": 1.0}, nil)
	assert.Equal(t, map[string]interface{}{"a": 1.0}, got)
	assert.Empty(t, DeepMerge())
}

func TestParseArrayPolicy(t *testing.T) {
	p, err := ParseArrayPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ArraysReplace, p)

	p, err = ParseArrayPolicy("concat")
	require.NoError(t, err)
	assert.Equal(t, ArraysConcat, p)
	assert.Equal(t, "concat", p.String())

	_, err = ParseArrayPolicy("zip")
	assert.Error(t, err)
}
