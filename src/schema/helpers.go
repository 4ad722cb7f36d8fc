// Package schema builds the small JSON schemas that named types contribute to
// tool parameter schemas through their JSONSchema methods.
package schema

import (
	jsonschema "github.com/swaggest/jsonschema-go"
)

// String creates a JSON schema for a string field
func String(description string) jsonschema.Schema {
	s := jsonschema.Schema{}
	s.AddType(jsonschema.String)
	if description != "" {
		s.WithDescription(description)
	}
	return s
}

// Pattern creates a string schema restricted to a regular expression, with
// optional examples.
func Pattern(description, pattern string, examples ...string) jsonschema.Schema {
	s := String(description)
	s.WithPattern(pattern)
	if len(examples) > 0 {
		ex := make([]any, len(examples))
		for i, e := range examples {
			ex[i] = e
		}
		s.WithExamples(ex...)
	}
	return s
}

// Enum creates a string schema accepting only values.
func Enum(description string, values ...string) jsonschema.Schema {
	s := String(description)
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	s.WithEnum(enum...)
	return s
}

// EmptyObject is the schema of a tool that takes no arguments.
func EmptyObject() *jsonschema.Schema {
	s := &jsonschema.Schema{}
	s.AddType(jsonschema.Object)
	return s
}
