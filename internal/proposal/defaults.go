package proposal

// Every call returns a fresh tree so callers may mutate the result.

// DefaultDesignSpec is the design the renderer falls back to.
func DefaultDesignSpec() map[string]interface{} {
	return map[string]interface{}{
		"palette": map[string]interface{}{
			"primary":   "#3b82f6",
			"secondary": "#8b5cf6",
			"surface":   "#f6f8fc",
			"ink":       "#0a1020",
			"muted":     "#5c667a",
			"stroke":    "#e0e6f4",
		},
		"radius": map[string]interface{}{
			"panel":  float64(16),
			"bubble": float64(14),
			"card":   float64(12),
		},
		"texture": map[string]interface{}{
			"kind":      "none",
			"intensity": float64(0),
		},
		"brand": map[string]interface{}{
			"company": "",
			"website": "",
			"contact": "",
		},
	}
}

// DefaultProposal is the complete, empty proposal document.
func DefaultProposal() map[string]interface{} {
	return map[string]interface{}{
		"meta": map[string]interface{}{
			"lang":  "fr",
			"title": "",
			"style": map[string]interface{}{
				"designSpec": DefaultDesignSpec(),
			},
		},
		"letter": map[string]interface{}{
			"subject": "",
			"body":    "",
		},
		"scope":        []interface{}{},
		"deliverables": []interface{}{},
		"phases":       []interface{}{},
		"milestones":   []interface{}{},
		"pricing": map[string]interface{}{
			"currency": "EUR",
			"items":    []interface{}{},
			"total":    nil,
		},
		"terms": []interface{}{},
	}
}

// DefaultEnvelope is the shape of a chat answer around the proposal.
func DefaultEnvelope() map[string]interface{} {
	return map[string]interface{}{
		"reply":   "",
		"actions": []interface{}{},
	}
}

// DesignSpecOf returns the design spec nested in a proposal document, or nil.
func DesignSpecOf(doc map[string]interface{}) map[string]interface{} {
	meta, _ := doc["meta"].(map[string]interface{})
	style, _ := meta["style"].(map[string]interface{})
	spec, _ := style["designSpec"].(map[string]interface{})
	return spec
}
