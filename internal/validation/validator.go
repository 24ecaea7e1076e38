// Package validation checks request and metadata structs before they are sent
// to the control plane or trusted from disk.
//
// It uses go-playground/validator struct tags plus two naming rules:
//   - instname: instance names, letters/digits/dashes, not starting or ending with a dash
//   - orgslug:  organization slugs, lowercase letters/digits/dashes, same shape
//
// Both end up in one DNS label, "<name>--<org>", so neither may contain "--".
//
// # Usage Example
//
//	v := validation.New()
//	result := v.Validate(&models.CreateInstanceRequest{Name: "db1", Org: "acme", Version: "2.0"})
//	if !result.Valid {
//	    for _, e := range result.Errors {
//	        fmt.Printf("%s: %s\n", e.Field, e.Message)
//	    }
//	}
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	instanceNameRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
	orgSlugRe      = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
)

// Validator wraps a configured go-playground validator.
type Validator struct {
	// structValidator validates Go struct constraints and tags
	structValidator *validator.Validate
}

// ValidationError represents a single validation error with field-level details.
type ValidationError struct {
	// Field is the name of the field that failed validation
	Field string `json:"field"`

	// Message describes why the validation failed
	Message string `json:"message"`

	// Value is the invalid value that caused the error (optional)
	Value interface{} `json:"value,omitempty"`
}

// ValidationResult represents the complete result of a validation operation.
type ValidationResult struct {
	// Valid is true if validation passed, false otherwise
	Valid bool `json:"valid"`

	// Errors contains all validation errors found (empty if Valid is true)
	Errors []ValidationError `json:"errors,omitempty"`
}

// Err converts a failed result into an error listing every field problem.
// It returns nil for a valid result.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(parts, "; "))
}

// ErrInvalid is wrapped by ValidationResult.Err.
var ErrInvalid = errors.New("validation failed")

// New creates a Validator with the custom naming rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("instname", func(fl validator.FieldLevel) bool {
		return IsValidInstanceName(fl.Field().String())
	})
	_ = v.RegisterValidation("orgslug", func(fl validator.FieldLevel) bool {
		return IsValidOrgSlug(fl.Field().String())
	})
	return &Validator{structValidator: v}
}

// Validate checks a struct against its validate tags.
func (v *Validator) Validate(s interface{}) *ValidationResult {
	err := v.structValidator.Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "document", Message: err.Error()}},
		}
	}

	result := &ValidationResult{Valid: false}
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: messageFor(fe),
			Value:   fe.Value(),
		})
	}
	return result
}

// IsValidInstanceName reports whether name can be used as an instance name.
func IsValidInstanceName(name string) bool {
	return instanceNameRe.MatchString(name) && !strings.Contains(name, "--")
}

// IsValidOrgSlug reports whether slug can be used as an organization slug.
func IsValidOrgSlug(slug string) bool {
	return orgSlugRe.MatchString(slug) && !strings.Contains(slug, "--")
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "instname":
		return "must contain only letters, digits and single dashes and not start or end with a dash"
	case "orgslug":
		return "must contain only lowercase letters, digits and single dashes and not start or end with a dash"
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
