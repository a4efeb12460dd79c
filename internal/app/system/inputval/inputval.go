// Package inputval holds the validation layer: declarative ozzo-validation
// schemas are built by each feature, and this package supplies the shared
// rules, strict JSON decoding, and the conversion of every collected
// violation into a single apperr Validation error.
//
// Handlers call Check (or a Decode function) before authorization and
// before touching the database, so a request that fails here has no
// effects.
package inputval

import (
	"errors"
	"strings"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsValidEmail reports whether s is a bare address (no display name) whose
// domain has at least one dot.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && is.EmailFormat.Validate(s) == nil
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	return is.URL.Validate(s) == nil
}

// Check converts the result of validation.ValidateStruct (or a hand-built
// validation.Errors) into an apperr Validation error listing every
// violation. A nil input returns nil.
func Check(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return apperr.Wrap(apperr.Internal, "validation rule failed", internal.InternalError())
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return apperr.Invalid([]apperr.FieldError{{Field: "body", Message: err.Error()}})
	}
	fields := flatten("", errs, nil)
	if len(fields) == 0 {
		return nil
	}
	return apperr.Invalid(fields)
}

// flatten walks nested validation.Errors (struct fields, slice indexes)
// into dotted field paths such as "images.0.url".
func flatten(prefix string, errs validation.Errors, out []apperr.FieldError) []apperr.FieldError {
	for key, e := range errs {
		if e == nil {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(e, &nested) {
			out = flatten(path, nested, out)
			continue
		}
		out = append(out, apperr.FieldError{Field: path, Message: e.Error()})
	}
	return out
}

// Join combines already-checked errors. Field errors from every Validation
// error are reported together; any other error is returned as is.
func Join(errs ...error) error {
	var fields []apperr.FieldError
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !apperr.IsKind(err, apperr.Validation) {
			return err
		}
		fs := apperr.FieldsOf(err)
		if len(fs) == 0 {
			fs = []apperr.FieldError{{Field: "body", Message: apperr.PublicMessage(err)}}
		}
		fields = append(fields, fs...)
	}
	if len(fields) == 0 {
		return nil
	}
	return apperr.Invalid(fields)
}
