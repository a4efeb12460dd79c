package inputval

import (
	"bytes"
	"encoding/json"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// DecodeFormCreate decodes multipart or urlencoded form values into dst with
// the same strictness as DecodeCreate.
func DecodeFormCreate(values url.Values, dst any) error {
	body, err := formJSON(values, dst)
	if err != nil {
		return err
	}
	return DecodeCreate(bytes.NewReader(body), dst)
}

// DecodeFormUpdate decodes form values into an update struct with the same
// strictness as DecodeUpdate.
func DecodeFormUpdate(values url.Values, dst any) error {
	body, err := formJSON(values, dst)
	if err != nil {
		return err
	}
	return DecodeUpdate(bytes.NewReader(body), dst)
}

// formJSON re-encodes form values as a JSON object, coercing each value to the
// type of the dst field carrying the same json tag. Values that do not coerce
// are passed through as strings so the decoder reports the type mismatch.
// Keys written as "tags[]" are treated as "tags".
func formJSON(values url.Values, dst any) ([]byte, error) {
	fields := jsonFieldTypes(dst)
	obj := make(map[string]any, len(values))

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		name := strings.TrimSuffix(key, "[]")
		t, known := fields[name]
		if !known {
			obj[name] = vals[0]
			continue
		}
		obj[name] = coerce(t, vals)
	}
	return json.Marshal(obj)
}

func coerce(t reflect.Type, vals []string) any {
	first := vals[0]
	switch t.Kind() {
	case reflect.String:
		return first
	case reflect.Bool:
		if b, err := strconv.ParseBool(strings.TrimSpace(first)); err == nil {
			return b
		}
		return first
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int32, reflect.Int64:
		if f, err := strconv.ParseFloat(strings.TrimSpace(first), 64); err == nil {
			return f
		}
		return first
	case reflect.Slice:
		if t.Elem().Kind() == reflect.String {
			if len(vals) > 1 {
				return vals
			}
			if isJSON(first) {
				return json.RawMessage(first)
			}
			return splitList(first)
		}
	}
	if isJSON(first) {
		return json.RawMessage(first)
	}
	return first
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isJSON(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '[' && s[0] != '{') {
		return false
	}
	return json.Valid([]byte(s))
}

// jsonFieldTypes maps json tag names of the struct dst points to onto their
// dereferenced field types.
func jsonFieldTypes(dst any) map[string]reflect.Type {
	out := map[string]reflect.Type{}
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if f.Anonymous && name == "" {
			// Embedded structs contribute their fields.
			for k, v := range jsonFieldTypes(reflect.New(f.Type).Interface()) {
				if _, ok := out[k]; !ok {
					out[k] = v
				}
			}
			continue
		}
		if !f.IsExported() || name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		out[name] = ft
	}
	return out
}
