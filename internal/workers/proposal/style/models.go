// internal/workers/proposal/style/models.go
package style

import (
	"propoflash/internal/common/validation"
	"propoflash/internal/models"
)

type Input = models.StyleRequest

type Output struct {
	models.StyleResponse
	Lang         string `json:"lang"`
	DegradedCode string `json:"degradedCode,omitempty"`
}

// designKeys are the top-level fields that mark a bare design diff.
var designKeys = []string{"palette", "typography", "radius", "texture", "brand", "decor_layers", "shapes"}

func requestSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"userText":      {Type: "string", Nullable: true},
			"currentDesign": {Type: "object", Nullable: true},
			"lang":          {Type: "string", Nullable: true},
			"userId":        {Type: "string", Nullable: true},
		},
		AdditionalProperties: true,
	}
}
