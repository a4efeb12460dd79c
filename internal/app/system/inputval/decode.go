package inputval

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
)

// MaxJSONBody caps JSON request bodies.
const MaxJSONBody = 1 << 20 // 1 MB

// Validatable is a decoded payload that checks its own schema.
type Validatable interface {
	Validate() error
}

// DecodeCreate strictly decodes a create/submit payload into dst. Unknown
// fields are reported as validation errors on that field. Fields of the
// wrong JSON type are reported together with the schema errors of the
// fields that did decode when dst is Validatable.
func DecodeCreate(body io.Reader, dst any) error {
	res, err := decodeStrict(body, dst)
	if res.unknownField != "" {
		return apperr.Invalid([]apperr.FieldError{{Field: res.unknownField, Message: "is not allowed"}})
	}
	if err != nil {
		return err
	}
	return withSchemaErrors(dst, res.typeErrors)
}

// DecodeUpdate strictly decodes a patch payload into an update struct whose
// fields are the only ones that operation may change. Any other field fails
// the whole request with InvalidUpdate before anything is applied.
func DecodeUpdate(body io.Reader, dst any) error {
	res, err := decodeStrict(body, dst)
	if res.unknownField != "" {
		e := apperr.New(apperr.InvalidUpdate, fmt.Sprintf("Field %q cannot be updated", res.unknownField))
		e.Fields = []apperr.FieldError{{Field: res.unknownField, Message: "cannot be updated"}}
		return e
	}
	if err != nil {
		return err
	}
	return withSchemaErrors(dst, res.typeErrors)
}

type decodeResult struct {
	unknownField string              // a field dst does not declare
	typeErrors   []apperr.FieldError // fields whose JSON type does not fit dst
}

func decodeStrict(body io.Reader, dst any) (decodeResult, error) {
	if body == nil {
		return decodeResult{}, apperr.New(apperr.Validation, "Request body is required")
	}
	raw, err := io.ReadAll(io.LimitReader(body, MaxJSONBody))
	if err != nil {
		return decodeResult{}, apperr.Wrap(apperr.Validation, "Invalid request body", err)
	}
	field, err := decodeInto(raw, dst)
	if field != "" {
		return decodeResult{unknownField: field}, nil
	}
	var typeErr *json.UnmarshalTypeError
	if err == nil || !errors.As(err, &typeErr) {
		return decodeResult{}, decodeError(err)
	}

	// The decoder reports only the first mismatch, so each member is tried on
	// its own and the ones that fit are decoded again.
	res, rest, ok := splitTypeErrors(raw, dst)
	if !ok {
		return decodeResult{}, decodeError(err)
	}
	if res.unknownField != "" {
		return res, nil
	}
	clean, err := json.Marshal(rest)
	if err != nil {
		return decodeResult{}, apperr.Wrap(apperr.Internal, "re-encode request body", err)
	}
	zero(dst)
	field, err = decodeInto(clean, dst)
	if field != "" {
		return decodeResult{unknownField: field}, nil
	}
	if err != nil {
		return decodeResult{}, decodeError(err)
	}
	return res, nil
}

// decodeInto returns the offending field name when raw carries a field dst
// does not declare.
func decodeInto(raw []byte, dst any) (unknownField string, err error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if f, ok := unknownFieldName(err); ok {
			return f, nil
		}
		return "", err
	}
	if dec.More() {
		return "", errTrailingData
	}
	return "", nil
}

// splitTypeErrors tries every top-level member of the raw object against the
// dst field it names. Members that fail become field errors; the rest are
// returned for a second decode. ok is false when raw is not an object.
func splitTypeErrors(raw []byte, dst any) (res decodeResult, rest map[string]json.RawMessage, ok bool) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil || members == nil {
		return decodeResult{}, nil, false
	}
	fields := jsonFieldTypes(dst)

	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rest = make(map[string]json.RawMessage, len(members))
	for _, key := range keys {
		ft, known := lookupField(fields, key)
		if !known {
			return decodeResult{unknownField: key}, nil, true
		}
		if err := json.Unmarshal(members[key], reflect.New(ft).Interface()); err != nil {
			res.typeErrors = append(res.typeErrors, memberError(key, err))
			continue
		}
		rest[key] = members[key]
	}
	return res, rest, true
}

// lookupField matches key the way encoding/json does: exact tag first, then
// case-insensitively.
func lookupField(fields map[string]reflect.Type, key string) (reflect.Type, bool) {
	if ft, ok := fields[key]; ok {
		return ft, true
	}
	for name, ft := range fields {
		if strings.EqualFold(name, key) {
			return ft, true
		}
	}
	return nil, false
}

func memberError(key string, err error) apperr.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := key
		if typeErr.Field != "" {
			field = key + "." + typeErr.Field
		}
		return apperr.FieldError{Field: field, Message: "must be a " + jsonKind(typeErr.Type.Kind().String())}
	}
	return apperr.FieldError{Field: key, Message: "is invalid"}
}

func zero(dst any) {
	v := reflect.ValueOf(dst)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}

// withSchemaErrors joins typeErrs with the Validate errors of dst, dropping
// schema complaints about fields that already failed on type.
func withSchemaErrors(dst any, typeErrs []apperr.FieldError) error {
	if len(typeErrs) == 0 {
		return nil
	}
	v, ok := dst.(Validatable)
	if !ok {
		return apperr.Invalid(typeErrs)
	}
	schemaErr := v.Validate()
	if schemaErr != nil && !apperr.IsKind(schemaErr, apperr.Validation) {
		return schemaErr
	}
	var schema []apperr.FieldError
	for _, fe := range apperr.FieldsOf(schemaErr) {
		if !coveredBy(fe.Field, typeErrs) {
			schema = append(schema, fe)
		}
	}
	return Join(apperr.Invalid(typeErrs), invalidOrNil(schema))
}

func coveredBy(field string, typeErrs []apperr.FieldError) bool {
	for _, te := range typeErrs {
		top, _, _ := strings.Cut(te.Field, ".")
		if field == top || strings.HasPrefix(field, top+".") {
			return true
		}
	}
	return false
}

func invalidOrNil(fields []apperr.FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return apperr.Invalid(fields)
}

func unknownFieldName(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, prefix), `"`), true
}

var errTrailingData = errors.New("trailing data after JSON object")

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errTrailingData):
		return apperr.New(apperr.Validation, "Request body must contain a single JSON object")
	case errors.Is(err, io.EOF):
		return apperr.New(apperr.Validation, "Request body is required")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return apperr.Invalid([]apperr.FieldError{{Field: field, Message: "must be a " + jsonKind(typeErr.Type.Kind().String())}})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.New(apperr.Validation, "Malformed JSON body")
	}
	return apperr.Wrap(apperr.Validation, "Invalid request body", err)
}

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "list"
	case "map", "struct":
		return "object"
	case "ptr":
		return "value of the right type"
	}
	return "number"
}
