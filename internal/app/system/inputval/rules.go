package inputval

import (
	"reflect"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Rule error codes, stable for clients that map them to UI text.
var (
	errRequired = validation.NewError("validation_required", "is required")
	errBlank    = validation.NewError("validation_not_blank", "cannot be blank")
	errEmail    = is.ErrEmail
	errObjectID = validation.NewError("validation_is_object_id", "must be a valid id")
	errHTTPURL  = validation.NewError("validation_is_url", "must be an http or https URL")
	errOneOf    = validation.NewError("validation_in_invalid", "must be one of: {{.values}}")
)

// text extracts a string from a string or *string field value. present is
// false for a nil pointer.
func text(value interface{}) (s string, present bool, ok bool) {
	switch v := value.(type) {
	case string:
		return v, true, true
	case *string:
		if v == nil {
			return "", false, true
		}
		return *v, true, true
	}
	return "", false, false
}

// Required fails when a text field is missing or only whitespace. Non-text
// values defer to validation.Required.
var Required = validation.By(func(value interface{}) error {
	s, present, ok := text(value)
	if !ok {
		return validation.Required.Validate(value)
	}
	if !present || strings.TrimSpace(s) == "" {
		return errRequired
	}
	return nil
})

// NotBlank fails when an optional text field is present but whitespace only.
var NotBlank = validation.By(func(value interface{}) error {
	s, present, ok := text(value)
	if ok && present && strings.TrimSpace(s) == "" {
		return errBlank
	}
	return nil
})

// Email validates a present, non-empty text field with IsValidEmail after
// trimming surrounding whitespace.
var Email = validation.By(func(value interface{}) error {
	s, present, _ := text(value)
	if !present || s == "" {
		return nil
	}
	if !IsValidEmail(strings.TrimSpace(s)) {
		return errEmail
	}
	return nil
})

// ObjectID validates a present, non-empty text field as an ObjectID hex.
var ObjectID = validation.By(func(value interface{}) error {
	s, present, _ := text(value)
	if !present || s == "" {
		return nil
	}
	if !IsValidObjectID(s) {
		return errObjectID
	}
	return nil
})

// HTTPURL validates a present, non-empty text field as an http(s) URL.
var HTTPURL = validation.By(func(value interface{}) error {
	s, present, _ := text(value)
	if !present || s == "" {
		return nil
	}
	if !IsValidHTTPURL(s) {
		return errHTTPURL
	}
	return nil
})

// OneOf restricts a present text field to a closed set of values.
func OneOf(values []string) validation.Rule {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	msg := errOneOf.SetParams(map[string]interface{}{"values": strings.Join(values, ", ")})
	return validation.By(func(value interface{}) error {
		s, present, ok := text(value)
		if !ok || !present || s == "" {
			return nil
		}
		if _, found := allowed[s]; !found {
			return msg
		}
		return nil
	})
}

// Each applies rules to every element of a slice, or of the slice a non-nil
// pointer refers to. Failures are keyed by index.
func Each(rules ...validation.Rule) validation.Rule {
	each := validation.Each(rules...)
	return validation.By(func(value interface{}) error {
		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil
			}
			value = v.Elem().Interface()
		}
		return each.Validate(value)
	})
}

// EachOneOf restricts every element of a string slice to values.
func EachOneOf(values []string) validation.Rule {
	return Each(OneOf(values))
}

// MinLength requires a present text field to have at least n characters.
func MinLength(n int) validation.Rule {
	return validation.RuneLength(n, 0)
}

// MaxLength caps a present text field at n characters.
func MaxLength(n int) validation.Rule {
	return validation.RuneLength(0, n)
}
