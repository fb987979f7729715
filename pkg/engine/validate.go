package engine

import (
	"fmt"
	"regexp"

	"github.com/spf13/cast"

	"github.com/MoslemBenDhaou/datasurface/pkg/resource"
)

// Validation messages. Message text is stable so that callers can match
// on it.
const (
	msgNotAllowed    = "Field is not allowed."
	msgImmutable     = "Field is immutable."
	msgRequired      = "Field is required."
	msgNotNullable   = "Field cannot be null."
	msgTokenRequired = "Concurrency token is required."
	msgKeyRequired   = "Key is required; this key type has no auto-generation."
	msgKeyExists     = "A record with this key already exists."
)

// validateCreate checks the create payload against the contract. The key
// field is accepted even when outside the input shape because a caller
// may supply its own key.
func validateCreate(c *resource.Contract, payload resource.Document) *resource.ValidationError {
	op := c.Op(resource.OpCreate)
	verr := resource.NewValidationError()

	for name, value := range payload {
		f, known := c.Field(name)
		if !known {
			// Relation write fields sit in the input shape without a
			// field contract of their own.
			if !op.Input[name] {
				verr.Add(name, msgNotAllowed)
			}
			continue
		}
		if f.IsKey {
			continue
		}
		if !op.Input[f.APIName] {
			verr.Add(f.APIName, msgNotAllowed)
			continue
		}
		checkFieldValue(verr, f, value)
	}

	for name := range op.Required {
		if v, ok := payload[name]; !ok || v == nil {
			verr.Add(name, msgRequired)
		}
	}

	if verr.Any() {
		return verr
	}
	return nil
}

// validateUpdate checks the update payload. The key field and the
// concurrency token pass through; the pipeline re-stamps the key and
// consumes the token itself.
func validateUpdate(c *resource.Contract, payload resource.Document) *resource.ValidationError {
	op := c.Op(resource.OpUpdate)
	verr := resource.NewValidationError()

	for name, value := range payload {
		f, known := c.Field(name)
		if !known {
			if !op.Input[name] {
				verr.Add(name, msgNotAllowed)
			}
			continue
		}
		if f.IsKey {
			continue
		}
		if op.Concurrency != nil && f.APIName == op.Concurrency.TokenField {
			continue
		}
		if !op.Input[f.APIName] {
			if op.Immutable[f.APIName] {
				verr.Add(f.APIName, msgImmutable)
			} else {
				verr.Add(f.APIName, msgNotAllowed)
			}
			continue
		}
		checkFieldValue(verr, f, value)
	}

	if op.Concurrency != nil && op.Concurrency.Required {
		if v, ok := payload[op.Concurrency.TokenField]; !ok || v == nil {
			verr.Add(op.Concurrency.TokenField, msgTokenRequired)
		}
	}

	if verr.Any() {
		return verr
	}
	return nil
}

// checkFieldValue applies nullability and the declarative constraints to
// one present payload value.
func checkFieldValue(verr *resource.ValidationError, f *resource.FieldContract, value any) {
	if value == nil {
		if !f.Nullable {
			verr.Add(f.APIName, msgNotNullable)
		}
		return
	}
	v := f.Validation
	if v.MinLength != nil || v.MaxLength != nil || v.Pattern != "" || len(v.AllowedValues) > 0 {
		if str, err := cast.ToStringE(value); err == nil {
			checkStringValue(verr, f, str)
		}
	}
	if v.Min != nil || v.Max != nil {
		if num, err := cast.ToFloat64E(value); err == nil {
			if v.Min != nil && num < *v.Min {
				verr.Add(f.APIName, fmt.Sprintf("Value must be at least %v.", *v.Min))
			}
			if v.Max != nil && num > *v.Max {
				verr.Add(f.APIName, fmt.Sprintf("Value must be at most %v.", *v.Max))
			}
		}
	}
}

func checkStringValue(verr *resource.ValidationError, f *resource.FieldContract, str string) {
	v := f.Validation
	if v.MinLength != nil && len(str) < *v.MinLength {
		verr.Add(f.APIName, fmt.Sprintf("Value must be at least %d characters.", *v.MinLength))
	}
	if v.MaxLength != nil && len(str) > *v.MaxLength {
		verr.Add(f.APIName, fmt.Sprintf("Value must be at most %d characters.", *v.MaxLength))
	}
	if v.Pattern != "" {
		if re, err := regexp.Compile(v.Pattern); err == nil && !re.MatchString(str) {
			verr.Add(f.APIName, "Value does not match the required pattern.")
		}
	}
	if len(v.AllowedValues) > 0 {
		allowed := false
		for _, a := range v.AllowedValues {
			if a == str {
				allowed = true
				break
			}
		}
		if !allowed {
			verr.Add(f.APIName, "Value is not one of the allowed values.")
		}
	}
}
