// Package cli provides struct-tag validation for the command-line
// surfaces (cmd/polkit-auth, cmd/polkit-grant-helper) via a thread-safe
// singleton go-playground/validator instance. Grounded on
// internal/validation/validator.go's singleton-with-sync.Once pattern,
// trimmed to this repository's CLI argument structs instead of that
// project's HTTP request structs.
package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// get returns the singleton validator instance, initializing it with
// WithRequiredStructEnabled on first use.
func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// ValidationError reports the fields that failed struct-tag validation.
type ValidationError struct {
	Fields []FieldError
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Param != "" {
			parts[i] = fmt.Sprintf("%s: failed %q (%s)", f.Field, f.Tag, f.Param)
		} else {
			parts[i] = fmt.Sprintf("%s: failed %q", f.Field, f.Tag)
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct validates s against its `validate:"..."` struct tags,
// returning nil if s is well-formed or a *ValidationError describing
// every violated rule.
func ValidateStruct(s interface{}) error {
	if err := get().Struct(s); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("cli: validate: %w", err)
		}
		ve := &ValidationError{Fields: make([]FieldError, len(fieldErrs))}
		for i, fe := range fieldErrs {
			ve.Fields[i] = FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
		}
		return ve
	}
	return nil
}

// GrantHelperArgs is the parsed command-line contract of
// cmd/polkit-grant-helper (spec.md §6 "Process model").
type GrantHelperArgs struct {
	ActionID    string `validate:"required,max=255"`
	Constraints string `validate:"omitempty"` // comma-separated; parsed by internal/constraint
	Mode        string `validate:"required,oneof=uid uid-negative"`
	TargetUID   uint32
}

// AuthCLIArgs is the parsed command-line contract of cmd/polkit-auth's
// subcommands that take an explicit action id and/or uid.
type AuthCLIArgs struct {
	ActionID string `validate:"omitempty,max=255"`
	UID      uint32
}
