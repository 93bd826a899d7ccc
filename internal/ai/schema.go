package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// structuredSchema pairs the schema sent to the model (the API's OpenAPI
// subset) with the JSON Schema the reply must satisfy locally.
type structuredSchema struct {
	name     string
	response map[string]any
	compiled *jsonschema.Schema
}

func (s *structuredSchema) validate(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%s: invalid JSON: %w", s.name, err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

func mustSchema(name, jsonSchema string, response map[string]any) *structuredSchema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://diary.schemas.local/ai/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(jsonSchema)); err != nil {
		panic(fmt.Sprintf("ai schema %s load failed: %v", name, err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("ai schema %s compile failed: %v", name, err))
	}
	return &structuredSchema{name: name, response: response, compiled: compiled}
}

var categorizeSchema = mustSchema("categorize", `{
  "type": "object",
  "required": ["category", "tags"],
  "properties": {
    "category": {"type": "string", "minLength": 1},
    "tags": {"type": "array", "items": {"type": "string"}}
  }
}`, map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"category": map[string]any{"type": "STRING", "description": "A single broad category such as Work, Personal, Ideas or Finance."},
		"tags": map[string]any{
			"type":        "ARRAY",
			"items":       map[string]any{"type": "STRING"},
			"description": "Up to 4 short lowercase keywords.",
		},
	},
	"required": []string{"category", "tags"},
})

var organizeSchema = mustSchema("organize", `{
  "type": "object",
  "required": ["organizedItems"],
  "properties": {
    "organizedItems": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "category", "priority"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "category": {"type": "string", "minLength": 1},
          "priority": {"type": "integer", "minimum": 1, "maximum": 5}
        }
      }
    }
  }
}`, map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"organizedItems": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"id":       map[string]any{"type": "STRING"},
					"category": map[string]any{"type": "STRING"},
					"priority": map[string]any{"type": "INTEGER", "description": "1 (highest) to 5 (lowest)."},
				},
				"required": []string{"id", "category", "priority"},
			},
		},
	},
	"required": []string{"organizedItems"},
})
