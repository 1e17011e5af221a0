// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"travel-workers/internal/common/validation"
)

//go:embed activities.json
var embedded []byte

var (
	defaultOnce sync.Once
	defaultReg  *ActivityRegistry
	defaultErr  error
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Default is the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = parse(embedded)
	})
	return defaultReg, defaultErr
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	return &reg, nil
}

// SaveRegistry writes reg as indented JSON.
func SaveRegistry(path string, reg *ActivityRegistry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// InputValidator compiles the input schema registered for taskType.
func (r *ActivityRegistry) InputValidator(taskType string) (*validation.Validator, error) {
	a, ok := r.Find(taskType)
	if !ok {
		return nil, fmt.Errorf("task type %q is not registered", taskType)
	}
	v, err := validation.NewValidator(a.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("input schema of %s: %w", taskType, err)
	}
	return v, nil
}

// MustInputValidator is InputValidator on the embedded registry. It panics on
// a broken registry, which is a build defect.
func MustInputValidator(taskType string) *validation.Validator {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	v, err := reg.InputValidator(taskType)
	if err != nil {
		panic(err)
	}
	return v
}
