// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"drift-workers/internal/common/validation"
)

// Load reads a registry file.
func Load(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", path, err)
	}
	return &reg, nil
}

// New returns an empty registry stamped with now.
func New(now time.Time) *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: now.UTC().Format(time.RFC3339),
		Activities:  []Activity{},
	}
}

// Save writes reg as indented JSON, creating the directory if needed.
func Save(reg *ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Add appends a new activity. IDs and task types must be unique.
func (r *ActivityRegistry) Add(a Activity, now time.Time) error {
	if err := validation.ValidateActivityNaming(a.ID); err != nil {
		return err
	}
	for _, existing := range r.Activities {
		if existing.ID == a.ID {
			return fmt.Errorf("activity with ID %s already exists", a.ID)
		}
		if existing.TaskType == a.TaskType {
			return fmt.Errorf("task type %s already registered by %s", a.TaskType, existing.ID)
		}
	}
	r.Activities = append(r.Activities, a)
	r.LastUpdated = now.UTC().Format(time.RFC3339)
	return nil
}

// Update sets one scalar field of the activity with the given ID.
func (r *ActivityRegistry) Update(id, field, value string, now time.Time) error {
	i := -1
	for j := range r.Activities {
		if r.Activities[j].ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	a := &r.Activities[i]
	switch field {
	case "status":
		switch value {
		case StatusPlanned, StatusInProgress, StatusCompleted, StatusVerified:
		default:
			return fmt.Errorf("invalid status: %s", value)
		}
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			return fmt.Errorf("invalid retries value: %s", value)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	r.LastUpdated = now.UTC().Format(time.RFC3339)
	return nil
}

// Validate checks required fields, uniqueness and that every schema
// compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, a := range r.Activities {
		switch {
		case a.ID == "":
			return fmt.Errorf("activity missing required field: ID")
		case a.DisplayName == "":
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		case a.TaskType == "":
			return fmt.Errorf("activity %s missing required field: TaskType", a.ID)
		case a.Category == "":
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true

		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("activity %s has invalid timeout %q", a.ID, a.Timeout)
			}
		}
		for name, schema := range map[string]map[string]interface{}{"input": a.InputSchema, "output": a.OutputSchema} {
			if _, err := validation.ValidateAgainstSchema(schema, map[string]interface{}{}); err != nil {
				return fmt.Errorf("activity %s has invalid %s schema: %w", a.ID, name, err)
			}
		}
	}
	return nil
}

// ValidateInput checks job variables against the input schema of taskType.
// Unregistered task types pass.
func (r *ActivityRegistry) ValidateInput(taskType string, vars interface{}) (*validation.ValidationResult, error) {
	a, ok := r.Find(taskType)
	if !ok {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return validation.ValidateAgainstSchema(a.InputSchema, vars)
}

// ValidateOutput checks a job result against the output schema of taskType.
func (r *ActivityRegistry) ValidateOutput(taskType string, vars interface{}) (*validation.ValidationResult, error) {
	a, ok := r.Find(taskType)
	if !ok {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return validation.ValidateAgainstSchema(a.OutputSchema, vars)
}
