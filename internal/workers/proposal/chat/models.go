// internal/workers/proposal/chat/models.go
package chat

import (
	"propoflash/internal/common/validation"
	"propoflash/internal/models"
)

type Input = models.ChatRequest

// Output is the chat answer plus what worker mode exposes as variables.
type Output struct {
	models.ChatResponse
	Lang         string `json:"lang"`
	DegradedCode string `json:"degradedCode,omitempty"`
}

func requestSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"message":      {Type: "string", Nullable: true},
			"proposalSpec": {Type: "object", Nullable: true},
			"history": {
				Type:     "array",
				Nullable: true,
				Items: &validation.Property{
					Type: "object",
					Properties: map[string]validation.Property{
						"role":    {Type: "string", Nullable: true},
						"content": {Type: "string", Nullable: true},
					},
				},
			},
			"memory": {Type: "object", Nullable: true},
			"userId": {Type: "string", Nullable: true},
			"lang":   {Type: "string", Nullable: true},
		},
		AdditionalProperties: true,
	}
}
