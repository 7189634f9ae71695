package gateway

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/default.yaml
var defaultPrompts []byte

// Pack is the fixed part of the prompt for one endpoint.
type Pack struct {
	System      string    `yaml:"system"`
	Temperature *float64  `yaml:"temperature"`
	FewShots    []Message `yaml:"few_shots"`
}

// Prompts holds one pack per endpoint. Treat it as read-only once loaded.
type Prompts struct {
	Chat  Pack `yaml:"chat"`
	Style Pack `yaml:"style"`
}

// LoadPrompts reads prompt packs from path, or the embedded defaults when
// path is empty. Packs missing from the file keep their default.
func LoadPrompts(path string) (*Prompts, error) {
	p, err := parsePrompts(defaultPrompts)
	if err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts %s: %w", path, err)
	}
	override, err := parsePrompts(raw)
	if err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	if override.Chat.System != "" {
		p.Chat = override.Chat
	}
	if override.Style.System != "" {
		p.Style = override.Style
	}
	return p, nil
}

func parsePrompts(raw []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	for _, pack := range []Pack{p.Chat, p.Style} {
		for i, m := range pack.FewShots {
			if m.Role != RoleUser && m.Role != RoleAssistant {
				return nil, fmt.Errorf("few_shots[%d]: unknown role %q", i, m.Role)
			}
		}
	}
	return &p, nil
}

// TemperatureOr returns the pack temperature, or def when the pack has none.
func (p Pack) TemperatureOr(def float64) float64 {
	if p.Temperature == nil {
		return def
	}
	return *p.Temperature
}
