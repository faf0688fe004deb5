package api

import (
	"fmt"
	"strings"

	"github.com/fullpos/poscloud/params"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cast"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

// validator collects every failing field instead of stopping at the first.
type validator struct {
	errors []FieldError
}

func (v *validator) add(field, format string, args ...interface{}) {
	v.errors = append(v.errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) positiveID(field string, val int64) {
	if val <= 0 {
		v.add(field, "must be a positive integer")
	}
}

// terminalCompany accepts a company id, or the RNC or cloud id a terminal was
// set up with.
func (v *validator) terminalCompany(companyID int64, rnc, cloudID string) {
	if companyID == 0 && strings.TrimSpace(rnc) == "" && strings.TrimSpace(cloudID) == "" {
		v.add("companyId", "companyId, companyRnc or companyCloudId is required")
		return
	}
	if companyID != 0 {
		v.positiveID("companyId", companyID)
	}
	v.optionalString("companyRnc", rnc, 9, 32)
	v.optionalString("companyCloudId", cloudID, 1, 32)
}

func (v *validator) requiredString(field, val string, min, max int) {
	n := len(strings.TrimSpace(val))
	switch {
	case n < min:
		v.add(field, "must be at least %d characters", min)
	case n > max:
		v.add(field, "must be at most %d characters", max)
	}
}

func (v *validator) optionalString(field, val string, min, max int) {
	if val == "" {
		return
	}
	v.requiredString(field, val, min, max)
}

func (v *validator) intRange(field string, val, min, max int) {
	if val < min || val > max {
		v.add(field, "must be between %d and %d", min, max)
	}
}

func (v *validator) meta(field string, meta map[string]interface{}) {
	if meta == nil {
		return
	}
	if len(meta) > params.MetaMaxKeys {
		v.add(field, "must have at most %d keys", params.MetaMaxKeys)
	}
	if depth(meta) > params.MetaMaxDepth {
		v.add(field, "must be nested at most %d levels", params.MetaMaxDepth)
	}
}

func (v *validator) err() *ValidationError {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// depth counts nested objects and arrays; a flat object has depth 1.
func depth(val interface{}) int {
	switch x := val.(type) {
	case map[string]interface{}:
		max := 0
		for _, child := range x {
			if d := depth(child); d > max {
				max = d
			}
		}
		return max + 1
	case []interface{}:
		max := 0
		for _, child := range x {
			if d := depth(child); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 0
	}
}

// queryInt coerces an optional query parameter. ok is false when it is absent.
func (v *validator) queryInt(ctx *fiber.Ctx, field string) (val int64, ok bool) {
	raw := ctx.Query(field)
	if raw == "" {
		return 0, false
	}
	val, err := cast.ToInt64E(raw)
	if err != nil {
		v.add(field, "must be an integer")
		return 0, false
	}
	return val, true
}

func sendValidationError(ctx *fiber.Ctx, err *ValidationError) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation error",
		"errors":  err.Errors,
	})
}

func parseBody(ctx *fiber.Ctx, out interface{}) *ValidationError {
	if err := ctx.BodyParser(out); err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "body", Message: "must be a valid JSON object"}}}
	}
	return nil
}
