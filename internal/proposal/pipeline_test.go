package proposal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propoflash/internal/common/i18n"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(Merger{}, nil, StyleGuard{MinContrast: MinContrast, MaxDecorLayers: 8})
	require.NoError(t, err)
	return p
}

func TestFallback(t *testing.T) {
	p := newTestPipeline(t)

	for _, lang := range []string{"fr", "en", "de"} {
		reply, spec := Fallback(lang, DefaultProposal(), "")
		assert.NotEmpty(t, reply)
		assert.Empty(t, MissingKeys(spec, DefaultProposal()))
		assert.Empty(t, p.Proposal.Check(spec))
		assert.Equal(t, i18n.Normalize(lang), spec["meta"].(map[string]interface{})["lang"])
	}

	reply, _ := Fallback("en", DefaultProposal(), i18n.KeyMissingCredentials)
	assert.Equal(t, i18n.T("en", i18n.KeyMissingCredentials), reply)
	assert.NotEqual(t, i18n.T("en", i18n.KeyFallbackReply), reply)
}

func TestFallback_Deterministic(t *testing.T) {
	r1, s1 := Fallback("fr", DefaultProposal(), "")
	r2, s2 := Fallback("fr", DefaultProposal(), "")
	assert.Equal(t, r1, r2)
	assert.Equal(t, s1, s2)

	s1["meta"].(map[string]interface{})["title"] = "changed"
	_, s3 := Fallback("fr", DefaultProposal(), "")
	assert.Equal(t, "", s3["meta"].(map[string]interface{})["title"])
}

func TestGenerateSchema(t *testing.T) {
	m, err := GenerateSchema(&Document{})
	require.NoError(t, err)
	assert.NotContains(t, m, "$schema")

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"designSpec"`)
	assert.Contains(t, string(raw), `"mesh"`)
}

func TestConformance_Check(t *testing.T) {
	p := newTestPipeline(t)

	doc := DefaultProposal()
	assert.Empty(t, p.Proposal.Check(doc))

	DesignSpecOf(doc)["palette"].(map[string]interface{})["primary"] = "blue"
	doc["meta"].(map[string]interface{})["lang"] = "de"
	assert.NotEmpty(t, p.Proposal.Check(doc))

	var nilCheck *Conformance
	assert.Nil(t, nilCheck.Check(doc))
}

func TestPipeline_BuildProposal(t *testing.T) {
	p := newTestPipeline(t)
	prior := map[string]interface{}{
		"meta":  map[string]interface{}{"title": "Old", "lang": "fr"},
		"scope": []interface{}{"Audit"},
		"notes": "kept",
	}
	extracted := map[string]interface{}{
		"meta": map[string]interface{}{
			"title": "Refonte",
			"style": map[string]interface{}{
				"designSpec": map[string]interface{}{
					"palette": map[string]interface{}{"primary": "not-a-color", "ink": "#fefefe"},
				},
			},
		},
		"pricing": map[string]interface{}{"items": []interface{}{map[string]interface{}{"label": "Design", "amount": 4000.0}}},
	}

	doc, report := p.BuildProposal(prior, extracted, "en")

	assert.Empty(t, MissingKeys(doc, DefaultProposal()))
	meta := doc["meta"].(map[string]interface{})
	assert.Equal(t, "Refonte", meta["title"])
	assert.Equal(t, "en", meta["lang"], "detected language applies when the model gives none")
	assert.Equal(t, []interface{}{"Audit"}, doc["scope"])
	assert.Equal(t, "kept", doc["notes"])
	assert.Len(t, doc["pricing"].(map[string]interface{})["items"], 1)

	palette := DesignSpecOf(doc)["palette"].(map[string]interface{})
	assert.Equal(t, "#3b82f6", palette["primary"])
	assert.Equal(t, "#0a1020", palette["ink"])
	assert.Contains(t, report.Fixes, "palette.primary")
	assert.Empty(t, report.Violations)

	assert.Equal(t, "Old", prior["meta"].(map[string]interface{})["title"])
}

func TestPipeline_BuildProposalModelLang(t *testing.T) {
	p := newTestPipeline(t)
	doc, _ := p.BuildProposal(nil, map[string]interface{}{"meta": map[string]interface{}{"lang": "EN-us"}}, "fr")
	assert.Equal(t, "en", doc["meta"].(map[string]interface{})["lang"])
}

func TestPipeline_BuildDesign(t *testing.T) {
	p := newTestPipeline(t)
	current := map[string]interface{}{
		"palette": map[string]interface{}{"primary": "#111827"},
		"brand":   map[string]interface{}{"company": "Acme"},
	}
	diff := map[string]interface{}{
		"palette": map[string]interface{}{"secondary": "#F59E0B"},
		"texture": map[string]interface{}{"kind": "mesh", "intensity": 0.3},
	}

	design, report := p.BuildDesign(current, diff)

	palette := design["palette"].(map[string]interface{})
	assert.Equal(t, "#111827", palette["primary"])
	assert.Equal(t, "#f59e0b", palette["secondary"])
	assert.Equal(t, "mesh", design["texture"].(map[string]interface{})["kind"])
	assert.Equal(t, "Acme", design["brand"].(map[string]interface{})["company"])
	assert.Empty(t, report.Violations)
}

func TestPipeline_SplitEnvelope(t *testing.T) {
	p := newTestPipeline(t)

	env := p.SplitEnvelope(map[string]interface{}{
		"reply":        "Voici",
		"proposalSpec": map[string]interface{}{"meta": map[string]interface{}{"title": "T"}},
		"actions": []interface{}{
			map[string]interface{}{"type": "preview"},
			map[string]interface{}{"label": "no type"},
			"junk",
		},
	})
	assert.Equal(t, "Voici", env.Reply)
	assert.Equal(t, "T", env.Spec["meta"].(map[string]interface{})["title"])
	assert.Equal(t, []interface{}{map[string]interface{}{"type": "preview"}}, env.Actions)

	env = p.SplitEnvelope(map[string]interface{}{
		"reply": "top level",
		"meta":  map[string]interface{}{"title": "Flat"},
		"scope": []interface{}{"x"},
	})
	require.NotNil(t, env.Spec)
	assert.Equal(t, "Flat", env.Spec["meta"].(map[string]interface{})["title"])
	assert.NotContains(t, env.Spec, "reply")

	env = p.SplitEnvelope(map[string]interface{}{"reply": 42.0})
	assert.Equal(t, "42", env.Reply)
	assert.Nil(t, env.Spec)
	assert.Empty(t, env.Actions)
}

func TestPipeline_BuildProposalKeepsPriorOnUnusableLeaf(t *testing.T) {
	p := newTestPipeline(t)
	prior := map[string]interface{}{
		"meta":   map[string]interface{}{"title": "Refonte", "lang": "fr"},
		"letter": map[string]interface{}{"body": "Madame, Monsieur, ..."},
	}
	extracted := map[string]interface{}{
		"meta":   map[string]interface{}{"title": map[string]interface{}{"fr": "Refonte site"}},
		"letter": map[string]interface{}{"body": []interface{}{"Para 1", "Para 2"}, "subject": "Proposition"},
	}

	doc, _ := p.BuildProposal(prior, extracted, "fr")

	assert.Equal(t, "Refonte", doc["meta"].(map[string]interface{})["title"])
	letter := doc["letter"].(map[string]interface{})
	assert.Equal(t, "Madame, Monsieur, ...", letter["body"])
	assert.Equal(t, "Proposition", letter["subject"])
}

func TestPipeline_BuildProposalMistypedDesignField(t *testing.T) {
	prior := func() map[string]interface{} {
		return map[string]interface{}{
			"meta": map[string]interface{}{"style": map[string]interface{}{"designSpec": map[string]interface{}{
				"palette": map[string]interface{}{"primary": "#112233"},
				"brand":   map[string]interface{}{"company": "Acme"},
				"shadow":  "soft",
			}}},
		}
	}
	withDesign := func(design map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"meta": map[string]interface{}{"style": map[string]interface{}{"designSpec": design}}}
	}

	tests := []struct {
		name     string
		design   map[string]interface{}
		wantFix  string
		wantKept int
	}{
		{
			name:    "typography as a string",
			design:  map[string]interface{}{"typography": "Inter"},
			wantFix: "typography",
		},
		{
			name: "decor layer with a word opacity",
			design: map[string]interface{}{"decor_layers": []interface{}{
				map[string]interface{}{"type": "glow", "opacity": "high"},
				map[string]interface{}{"type": "dots", "opacity": 0.4},
			}},
			wantFix:  "decor_layers[0]",
			wantKept: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t)
			doc, report := p.BuildProposal(prior(), withDesign(tt.design), "fr")

			design := DesignSpecOf(doc)
			assert.Equal(t, "#112233", design["palette"].(map[string]interface{})["primary"])
			assert.Equal(t, "Acme", design["brand"].(map[string]interface{})["company"])
			assert.Equal(t, "soft", design["shadow"])
			assert.NotContains(t, design, "typography")
			assert.Contains(t, report.Fixes, tt.wantFix)
			assert.NotContains(t, report.Fixes, "designSpec")
			if tt.wantKept > 0 {
				assert.Len(t, design["decor_layers"], tt.wantKept)
			}
		})
	}
}

func TestPipeline_BuildDesignMistypedRadius(t *testing.T) {
	p := newTestPipeline(t)
	current := map[string]interface{}{
		"palette": map[string]interface{}{"primary": "#112233"},
		"radius":  map[string]interface{}{"panel": 24.0},
	}
	design, _ := p.BuildDesign(current, map[string]interface{}{
		"radius":     map[string]interface{}{"panel": "large"},
		"typography": map[string]interface{}{"heading": []interface{}{"Inter"}, "body": "Inter"},
	})

	assert.Equal(t, 24.0, design["radius"].(map[string]interface{})["panel"])
	assert.Equal(t, "#112233", design["palette"].(map[string]interface{})["primary"])
	assert.Equal(t, map[string]interface{}{"body": "Inter"}, design["typography"])
}
