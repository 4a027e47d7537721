// Package validation checks JSON documents against JSON Schema definitions.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error joins the individual messages; it is only meaningful when Valid is false.
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// Schema is a compiled JSON schema.
type Schema struct {
	compiled *gojsonschema.Schema
}

// Compile accepts a schema as raw JSON bytes, a JSON string, or any Go value
// that marshals to a schema object.
func Compile(schema interface{}) (*Schema, error) {
	var loader gojsonschema.JSONLoader
	switch s := schema.(type) {
	case []byte:
		loader = gojsonschema.NewBytesLoader(s)
	case json.RawMessage:
		loader = gojsonschema.NewBytesLoader(s)
	case string:
		loader = gojsonschema.NewStringLoader(s)
	default:
		loader = gojsonschema.NewGoLoader(s)
	}

	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompile panics on an invalid schema. Use for package-level literals only.
func MustCompile(schema interface{}) *Schema {
	s, err := Compile(schema)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a Go value (struct, map, slice) against the schema.
func (s *Schema) Validate(doc interface{}) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewGoLoader(doc))
}

// ValidateBytes checks raw JSON against the schema.
func (s *Schema) ValidateBytes(doc []byte) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewBytesLoader(doc))
}

func (s *Schema) validate(loader gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := s.compiled.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// Cache compiles each schema once, keyed by name.
type Cache struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

func NewCache() *Cache {
	return &Cache{schemas: make(map[string]*Schema)}
}

// Validate compiles schema under name on first use and validates doc against it.
func (c *Cache) Validate(name string, schema interface{}, doc interface{}) (*ValidationResult, error) {
	c.mu.RLock()
	s, ok := c.schemas[name]
	c.mu.RUnlock()

	if !ok {
		compiled, err := Compile(schema)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		c.mu.Lock()
		c.schemas[name] = compiled
		c.mu.Unlock()
		s = compiled
	}
	return s.Validate(doc)
}
