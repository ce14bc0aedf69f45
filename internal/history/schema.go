package history

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// snapshotSchema describes the on-disk session format. Only structural
// requirements are encoded here; semantic checks (version key membership,
// role values on separators) live in the chat package.
const snapshotSchema = `{
	"type": "object",
	"required": ["id", "items"],
	"properties": {
		"id":            {"type": "string", "minLength": 1},
		"title":         {"type": "string"},
		"system_prompt": {"type": "string"},
		"created_at":    {"type": "string"},
		"updated_at":    {"type": "string"},
		"tags":          {"type": "array", "items": {"type": "string"}},
		"items": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"required": ["id", "kind"],
				"properties": {
					"id":        {"type": "string", "minLength": 1},
					"kind":      {"type": "string", "enum": ["message", "separator"]},
					"timestamp": {"type": "string"},
					"role":      {"type": "string", "enum": ["user", "assistant", ""]},
					"content":   {"type": "string"},
					"hidden":    {"type": "boolean"},
					"current_version": {"type": "string"},
					"versions": {
						"type": "object",
						"additionalProperties": {
							"type": "object",
							"required": ["content"],
							"properties": {
								"content":           {"type": "string"},
								"reasoning_content": {"type": "string"},
								"author":            {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

// ValidateSnapshot checks raw snapshot JSON against the session schema.
func ValidateSnapshot(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(snapshotSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("invalid session snapshot: %s", strings.Join(problems, "; "))
	}

	return nil
}
