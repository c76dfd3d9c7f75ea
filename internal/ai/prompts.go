package ai

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// promptSet holds the prompt templates sent to the model. Templates use
// fmt verbs filled in per request.
type promptSet struct {
	Timeline string `yaml:"timeline"`
	Tasks    string `yaml:"tasks"`
	Summary  string `yaml:"summary"`
}

// loadPrompts parses the embedded prompt manifest with strict validation.
// Unknown YAML fields are rejected (via KnownFields) to catch typos.
func loadPrompts() (*promptSet, error) {
	var prompts promptSet
	decoder := yaml.NewDecoder(bytes.NewReader(promptsYAML))
	decoder.KnownFields(true)

	if err := decoder.Decode(&prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	if prompts.Timeline == "" || prompts.Tasks == "" || prompts.Summary == "" {
		return nil, fmt.Errorf("prompts manifest missing required template")
	}

	return &prompts, nil
}
