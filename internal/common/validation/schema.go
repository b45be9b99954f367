// Package validation checks form payloads against per-type JSON schemas
// before they reach the store.
package validation

import (
	"fmt"
	"sort"
	"strings"

	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// Every form shares the contact fields; unknown fields are allowed as long
// as they are strings of reasonable size.
const baseSchema = `{
	"type": "object",
	"properties": {
		"name":    {"type": "string", "minLength": 1, "maxLength": 200},
		"email":   {"type": "string", "format": "email", "maxLength": 320},
		"phone":   {"type": "string", "pattern": "^[0-9+()\\-. ]{5,32}$"},
		"message": {"type": "string", "maxLength": 5000}
		%s
	},
	"required": [%s],
	"anyOf": [
		{"required": ["email"]},
		{"required": ["phone"]}
	],
	"additionalProperties": {"type": "string", "maxLength": 5000}
}`

var schemaSources = map[models.SubmissionType]string{
	models.SubmissionTypeOrder: fmt.Sprintf(baseSchema,
		`, "product": {"type": "string", "minLength": 1, "maxLength": 200},
		   "quantity": {"type": "string", "pattern": "^[1-9][0-9]{0,3}$"}`,
		`"name", "product"`),
	models.SubmissionTypeContact:      fmt.Sprintf(baseSchema, "", `"name"`),
	models.SubmissionTypeConsultation: fmt.Sprintf(baseSchema, "", `"name"`),
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds the compiled schemas. It is safe for concurrent use.
type Validator struct {
	schemas map[models.SubmissionType]*gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[models.SubmissionType]*gojsonschema.Schema, len(schemaSources))}
	for t, src := range schemaSources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", t, err)
		}
		v.schemas[t] = schema
	}
	return v, nil
}

// Check validates data for the given type and reports every violation.
func (v *Validator) Check(t models.SubmissionType, data map[string]string) (*ValidationResult, error) {
	schema, ok := v.schemas[t]
	if !ok {
		return nil, commonerrors.NewInvalidSubmissionTypeError(string(t))
	}
	if data == nil {
		data = map[string]string{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out, nil
}

// Validate is Check folded into a single VALIDATION_FAILED error.
func (v *Validator) Validate(t models.SubmissionType, data map[string]string) error {
	res, err := v.Check(t, data)
	if err != nil {
		return err
	}
	if res.Valid {
		return nil
	}

	fields := make([]string, 0, len(res.Errors))
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		fields = append(fields, e.Field)
		msgs = append(msgs, e.Field+": "+e.Message)
	}
	return commonerrors.NewValidationFailedError(strings.Join(msgs, "; "), fields)
}

func fieldOf(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if p, ok := desc.Details()["property"].(string); ok {
			return p
		}
	}
	if desc.Type() == "number_any_of" {
		return "email|phone"
	}
	return desc.Field()
}
