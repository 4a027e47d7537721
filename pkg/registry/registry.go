// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"marketing-workers/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	reg.schemas = validation.NewCache()
	return &reg, nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks required fields, duplicate ids, timeouts and that every
// schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		ids[a.ID] = true

		if a.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		}
		if a.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", a.ID)
		}
		if a.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
			}
		}
		if len(a.InputSchema) > 0 {
			if _, err := validation.Compile(a.InputSchema); err != nil {
				return fmt.Errorf("activity %s input schema: %w", a.ID, err)
			}
		}
		if len(a.OutputSchema) > 0 {
			if _, err := validation.Compile(a.OutputSchema); err != nil {
				return fmt.Errorf("activity %s output schema: %w", a.ID, err)
			}
		}
	}
	return nil
}

// Missing lists the task types that have no registry entry.
func (r *ActivityRegistry) Missing(taskTypes ...string) []string {
	var missing []string
	for _, t := range taskTypes {
		if _, ok := r.Find(t); !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// ValidateInput checks job variables against the activity's input schema.
// Activities without a schema always pass.
func (r *ActivityRegistry) ValidateInput(taskType string, doc interface{}) (*validation.ValidationResult, error) {
	a, ok := r.Find(taskType)
	if !ok {
		return nil, fmt.Errorf("unknown task type %s", taskType)
	}
	return r.validate(taskType+"/input", a.InputSchema, doc)
}

// ValidateOutput checks a worker output against the activity's output schema.
func (r *ActivityRegistry) ValidateOutput(taskType string, doc interface{}) (*validation.ValidationResult, error) {
	a, ok := r.Find(taskType)
	if !ok {
		return nil, fmt.Errorf("unknown task type %s", taskType)
	}
	return r.validate(taskType+"/output", a.OutputSchema, doc)
}

func (r *ActivityRegistry) validate(name string, schema map[string]interface{}, doc interface{}) (*validation.ValidationResult, error) {
	if len(schema) == 0 {
		return &validation.ValidationResult{Valid: true}, nil
	}
	if r.schemas == nil {
		r.schemas = validation.NewCache()
	}
	// round-trip so struct outputs are checked by their json tags
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return r.schemas.Validate(name, schema, generic)
}
