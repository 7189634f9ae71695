package proposal

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"propoflash/internal/models"
)

// Document is the typed contract of a proposal, used only to generate its
// JSON schema. Free-form sections are left untyped.
type Document struct {
	Meta struct {
		Lang  string      `json:"lang" jsonschema:"enum=fr,enum=en"`
		Title interface{} `json:"title"`
		Style struct {
			DesignSpec models.DesignSpec `json:"designSpec"`
		} `json:"style"`
	} `json:"meta"`
	Letter struct {
		Subject interface{} `json:"subject"`
		Body    interface{} `json:"body"`
	} `json:"letter"`
	Scope        []interface{} `json:"scope"`
	Deliverables []interface{} `json:"deliverables"`
	Phases       []interface{} `json:"phases"`
	Milestones   []interface{} `json:"milestones"`
	Pricing      struct {
		Currency string        `json:"currency"`
		Items    []interface{} `json:"items"`
		Total    interface{}   `json:"total"`
	} `json:"pricing"`
	Terms []interface{} `json:"terms"`
}

// GenerateSchema reflects v into a self-contained JSON schema map.
func GenerateSchema(v interface{}) (map[string]interface{}, error) {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
	}
	raw, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	expandBooleanSchemas(m)
	return m, nil
}

// expandBooleanSchemas rewrites the `true` schema emitted for untyped fields
// as {} so older validators accept it.
func expandBooleanSchemas(m map[string]interface{}) {
	if props, ok := m["properties"].(map[string]interface{}); ok {
		for k, v := range props {
			switch t := v.(type) {
			case bool:
				props[k] = map[string]interface{}{}
			case map[string]interface{}:
				expandBooleanSchemas(t)
			}
		}
	}
	switch t := m["items"].(type) {
	case bool:
		m["items"] = map[string]interface{}{}
	case map[string]interface{}:
		expandBooleanSchemas(t)
	}
}

// Conformance validates documents against a reflected schema.
type Conformance struct {
	schema *gojsonschema.Schema
}

func NewConformance(v interface{}) (*Conformance, error) {
	m, err := GenerateSchema(v)
	if err != nil {
		return nil, err
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(m))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Conformance{schema: s}, nil
}

// ProposalConformance checks whole proposal documents.
func ProposalConformance() (*Conformance, error) {
	return NewConformance(&Document{})
}

// DesignConformance checks a design spec on its own.
func DesignConformance() (*Conformance, error) {
	return NewConformance(&models.DesignSpec{})
}

// Check returns one message per violation; nil means the document conforms.
func (c *Conformance) Check(doc interface{}) []string {
	if c == nil {
		return nil
	}
	result, err := c.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}
	out := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, e.String())
	}
	return out
}
