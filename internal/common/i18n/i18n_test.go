package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"fr":    "fr",
		"FR-fr": "fr",
		"en-US": "en",
		"EN":    "en",
		"de":    "fr",
		"":      "fr",
		" en ":  "en",
		"e":     "fr",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		hints Hints
		want  string
	}{
		{"explicit wins", Hints{Explicit: "en", Message: "Bonjour, refonte du site"}, "en"},
		{"prior meta lang", Hints{Prior: map[string]interface{}{"meta": map[string]interface{}{"lang": "en"}}, Message: "refonte du site"}, "en"},
		{"unsupported prior ignored", Hints{Prior: map[string]interface{}{"meta": map[string]interface{}{"lang": "de"}}, Message: "Please write the proposal for the website"}, "en"},
		{"french brief", Hints{Message: "Brief: refonte site vitrine 8 pages, deadline 6 semaines, budget cible 8-12k€, FR."}, "fr"},
		{"english brief", Hints{Message: "We need a quote for the redesign of our website in 6 weeks"}, "en"},
		{"accept-language", Hints{Message: "8-12k", AcceptLanguage: "en-GB,en;q=0.9"}, "en"},
		{"nothing to go on", Hints{Message: "8-12k"}, "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.hints))
		})
	}
}

func TestT(t *testing.T) {
	for _, lang := range Supported {
		for _, key := range []Key{KeyFallbackReply, KeyMissingCredentials, KeyQuotaExceeded, KeyDefaultReply, KeyStyleFallback} {
			assert.NotEmpty(t, T(lang, key))
		}
	}
	assert.Equal(t, T("fr", KeyFallbackReply), T("xx", KeyFallbackReply))
	assert.NotEqual(t, T("fr", KeyFallbackReply), T("en", KeyFallbackReply))
}
