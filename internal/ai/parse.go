package ai

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/*.json
var schemasFS embed.FS

var fenceRe = regexp.MustCompile("```(?:json)?")

// extractJSON pulls a JSON object out of a model response, stripping
// markdown code fences and any prose around the outermost braces.
func extractJSON(responseText string) ([]byte, error) {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(responseText, ""))

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("response contains no JSON object")
	}
	candidate := []byte(cleaned[start : end+1])

	if !json.Valid(candidate) {
		return nil, fmt.Errorf("response JSON is malformed")
	}
	return candidate, nil
}

// compileSchema loads and compiles an embedded JSON Schema by name
func compileSchema(name string) (*jsonschema.Schema, error) {
	data, err := schemasFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return schema, nil
}

// validatePayload checks decoded model output against a compiled schema
// and reports every violation in a stable order.
func validatePayload(schema *jsonschema.Schema, payload map[string]interface{}) error {
	result := schema.Validate(payload)
	if result.IsValid() {
		return nil
	}

	var messages []string
	for field, evalErr := range result.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	sort.Strings(messages)
	return fmt.Errorf("model output failed validation: %s", strings.Join(messages, "; "))
}
