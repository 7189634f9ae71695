package proposal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		ok     bool
		reason ParseFailure
		check  func(t *testing.T, v map[string]interface{})
	}{
		{
			name: "clean object",
			raw:  `{"reply":"ok","proposalSpec":{"meta":{"title":"X"}}}`,
			ok:   true,
			check: func(t *testing.T, v map[string]interface{}) {
				assert.Equal(t, "ok", v["reply"])
			},
		},
		{
			name: "surrounding whitespace",
			raw:  "\n\t {\"a\":1}  \n",
			ok:   true,
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"reply\":\"fenced\"}\n```",
			ok:   true,
			check: func(t *testing.T, v map[string]interface{}) {
				assert.Equal(t, "fenced", v["reply"])
			},
		},
		{
			name: "prose around object",
			raw:  "Sure! Here you go:\n{\"reply\":\"hi\"}\nHope it helps.",
			ok:   true,
			check: func(t *testing.T, v map[string]interface{}) {
				assert.Equal(t, "hi", v["reply"])
			},
		},
		{
			name: "nested braces inside strings",
			raw:  `note {"reply":"use {curly} braces","x":{"y":[1,2]}} end`,
			ok:   true,
		},
		{
			name:   "truncated object",
			raw:    "Sure! Here you go: {not valid json",
			reason: Truncated,
		},
		{
			name:   "cut mid document",
			raw:    `{"reply":"x","proposalSpec":{"meta":{"title":"A"}`,
			reason: Truncated,
		},
		{
			name:   "no braces",
			raw:    "I cannot help with that.",
			reason: Malformed,
		},
		{
			name:   "empty",
			raw:    "   ",
			reason: Malformed,
		},
		{
			name:   "top level array",
			raw:    `[1,2,3]`,
			reason: Malformed,
		},
		{
			name:   "two objects joined by prose",
			raw:    `{"a":1} and then {"b":2}`,
			reason: Malformed,
		},
		{
			name:   "closing brace before opening",
			raw:    `} oops {`,
			reason: Truncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ExtractJSON(tt.raw)
			require.Equal(t, tt.ok, res.OK)
			if !tt.ok {
				assert.Equal(t, tt.reason, res.Reason)
				assert.Nil(t, res.Value)
				return
			}
			require.NotNil(t, res.Value)
			if tt.check != nil {
				tt.check(t, res.Value)
			}
		})
	}
}

func TestExtractJSON_Garbage(t *testing.T) {
	inputs := []string{"{", "}", "{{{{", "\"unterminated", "```", "```json", "{\"a\":\"\\", "null", "42"}
	for _, in := range inputs {
		res := ExtractJSON(in)
		assert.False(t, res.OK, in)
		assert.Contains(t, []ParseFailure{Malformed, Truncated}, res.Reason, in)
	}
}
