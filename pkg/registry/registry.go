// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

const (
	ChatID  = "proposal-chat"
	StyleID = "proposal-style"
	QuotaID = "usage-quota"
)

// Default describes every activity shipped in this binary.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-17",
		Activities: []Activity{
			{
				ID:          ChatID,
				DisplayName: "Proposal chat",
				Description: "Turns a conversational brief into a complete proposal document",
				Category:    "proposal",
				TaskType:    ChatID,
				Endpoint:    "/api/chat",
				Method:      "POST",
				ErrorCodes:  []string{"METHOD_NOT_ALLOWED", "INVALID_REQUEST_BODY", "QUOTA_EXCEEDED"},
				Timeout:     "30s",
				Tags:        []string{"llm", "json"},
			},
			{
				ID:          StyleID,
				DisplayName: "Style interpreter",
				Description: "Converts a free-text style description into a design spec diff",
				Category:    "proposal",
				TaskType:    StyleID,
				Endpoint:    "/api/style",
				Method:      "POST",
				ErrorCodes:  []string{"METHOD_NOT_ALLOWED", "INVALID_REQUEST_BODY"},
				Timeout:     "30s",
				Tags:        []string{"llm", "design"},
			},
			{
				ID:          QuotaID,
				DisplayName: "Usage quota",
				Description: "Charges one request against the caller's monthly allowance",
				Category:    "infrastructure",
				TaskType:    QuotaID,
				ErrorCodes:  []string{"QUOTA_EXCEEDED", "QUOTA_CHECK_FAILED"},
				Timeout:     "2s",
				Retries:     2,
			},
		},
	}
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Endpoints lists the HTTP paths of all activities, sorted.
func (r *ActivityRegistry) Endpoints() []string {
	out := make([]string, 0, len(r.Activities))
	for _, a := range r.Activities {
		if a.Endpoint != "" {
			out = append(out, a.Endpoint)
		}
	}
	sort.Strings(out)
	return out
}

// TaskTypes lists the Zeebe job types of all activities.
func (r *ActivityRegistry) TaskTypes() []string {
	var out []string
	for _, a := range r.Activities {
		if a.TaskType != "" {
			out = append(out, a.TaskType)
		}
	}
	return out
}

func (r *ActivityRegistry) Find(id string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return Activity{}, false
}
