package dsl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	yaml "gopkg.in/yaml.v3"
)

const schemaTemplate = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["version", "name", "steps"],
	"additionalProperties": false,
	"properties": {
		"version": {"type": "integer", "enum": [1]},
		"name": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"viewport": {
			"type": "object",
			"required": ["width", "height"],
			"properties": {
				"width": {"type": "integer", "minimum": 1},
				"height": {"type": "integer", "minimum": 1}
			}
		},
		"vars": {"type": "object"},
		"steps": {
			"type": "array",
			"items": {"$ref": "#/definitions/step"}
		}
	},
	"definitions": {
		"duration": {
			"oneOf": [
				{"type": "integer", "minimum": 0},
				{"type": "string", "pattern": "^[0-9.]+(ns|us|µs|ms|s|m|h)$"}
			]
		},
		"target": {
			"type": "object",
			"required": ["selector"],
			"additionalProperties": false,
			"properties": {
				"selector": {"type": "string", "minLength": 1},
				"has_text": {"type": "string"},
				"nth": {"type": "integer", "minimum": 0},
				"within": {"$ref": "#/definitions/target"}
			}
		},
		"assertion": {
			"type": "object",
			"required": ["type"],
			"additionalProperties": false,
			"properties": {
				"type": {"type": "string", "enum": %s},
				"expected": {},
				"path": {"type": "string"},
				"exists": {"type": "boolean"},
				"schema": {"type": "object"},
				"expr": {"type": "string"},
				"within": {"$ref": "#/definitions/duration"},
				"message": {"type": "string"}
			}
		},
		"step": {
			"type": "object",
			"required": ["name", "action"],
			"additionalProperties": false,
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"action": {"type": "string", "enum": %s},
				"target": {"$ref": "#/definitions/target"},
				"url": {"type": "string"},
				"value": {"type": "string"},
				"key": {"type": "string"},
				"script": {"type": "string"},
				"path": {"type": "string"},
				"files": {"type": "array", "items": {"type": "string"}},
				"full_page": {"type": "boolean"},
				"wait_until": {"type": "string", "enum": ["load", "domcontentloaded", "networkidle"]},
				"duration": {"$ref": "#/definitions/duration"},
				"timeout": {"$ref": "#/definitions/duration"},
				"limit": {"type": "integer", "minimum": 0},
				"count": {"type": "integer", "minimum": 0},
				"accept": {"type": "boolean"},
				"hard": {"type": "boolean"},
				"when": {"type": "string"},
				"save": {"type": "string", "pattern": "^[a-zA-Z][a-zA-Z0-9_]*$"},
				"assertions": {"type": "array", "items": {"$ref": "#/definitions/assertion"}}
			}
		}
	}
}`

// GetJSONSchema returns the JSON schema for scenario documents.
func GetJSONSchema() string {
	assertionTypes, _ := json.Marshal(AssertionTypes)
	actions, _ := json.Marshal(Actions)
	return fmt.Sprintf(schemaTemplate, assertionTypes, actions)
}

// ValidateYAMLWithSchema checks a raw scenario document against GetJSONSchema.
func ValidateYAMLWithSchema(yamlPayload []byte) error {
	var data interface{}
	if err := yaml.Unmarshal(yamlPayload, &data); err != nil {
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(GetJSONSchema())
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	if !result.Valid() {
		var errMsg strings.Builder
		for _, desc := range result.Errors() {
			fmt.Fprintf(&errMsg, "- %s\n", desc)
		}
		return fmt.Errorf("schema validation failed:\n%s", errMsg.String())
	}

	return nil
}
