package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	schemasassets "github.com/npawatch/npawatch/internal/assets/schemas"

	"github.com/fulmenhq/gofulmen/schema"
)

// SchemaID identifies the embedded run-configuration schema.
const SchemaID = "npawatch/v1.0.0/run-config"

var (
	// ErrSchemaNotFound indicates the embedded schema could not be read.
	ErrSchemaNotFound = errors.New("run-config schema not found")

	// ErrValidationFailed indicates the config failed schema validation.
	ErrValidationFailed = errors.New("run-config validation failed")
)

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// ValidationError is a single schema-validation issue.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects one or more ValidationError.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "run-config validation failed with %d errors:\n", len(e))
	for i, err := range e {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ValidationErrors) Unwrap() error { return ErrValidationFailed }

// ValidateRaw validates jsonData (the config, already converted to
// JSON) against the embedded run-config schema. Validating the raw
// JSON, rather than the marshaled struct, is what lets
// additionalProperties:false reject unknown keys the struct would
// otherwise silently drop.
func ValidateRaw(jsonData []byte) error {
	v, err := getValidator()
	if err != nil {
		return err
	}

	diags, err := v.ValidateJSON(jsonData)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if len(diags) == 0 {
		return nil
	}

	var errs ValidationErrors
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			errs = append(errs, ValidationError{Path: d.Pointer, Message: d.Message})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate re-marshals c to JSON and validates it against the embedded
// schema. Prefer ValidateRaw on the original file bytes when available,
// since re-marshaling loses unknown top-level keys.
func Validate(c *Config) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config for validation: %w", err)
	}
	return ValidateRaw(data)
}

func getValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		if len(schemasassets.RunConfigSchema) == 0 {
			validatorErr = fmt.Errorf("%w: embedded run-config schema is empty", ErrSchemaNotFound)
			return
		}
		validator, validatorErr = schema.NewValidator(schemasassets.RunConfigSchema)
		if validatorErr != nil {
			validatorErr = fmt.Errorf("failed to compile run-config schema: %w", validatorErr)
		}
	})
	return validator, validatorErr
}
