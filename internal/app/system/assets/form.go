package assets

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/inputval"
)

// formMemory is how much of a multipart body is kept in memory; the rest
// spills to temp files.
const formMemory = 8 << 20

var errBadForm = apperr.New(apperr.Validation, "Invalid multipart form data")

// IsMultipart reports whether r carries a multipart/form-data body.
func IsMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// ParseMultipart reads a multipart body bounded by MaxRequestSize and returns
// its text fields and the files under FormField.
func ParseMultipart(w http.ResponseWriter, r *http.Request) (url.Values, []*multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, nil, errTooLarge
		}
		return nil, nil, apperr.Wrap(apperr.Validation, errBadForm.Message, err)
	}
	return r.MultipartForm.Value, r.MultipartForm.File[FormField], nil
}

// ReadCreate decodes a create payload sent either as JSON or as a multipart
// form with images. Returned files have passed Check.
func ReadCreate(w http.ResponseWriter, r *http.Request, dst any) ([]*multipart.FileHeader, error) {
	return read(w, r, dst, inputval.DecodeCreate, inputval.DecodeFormCreate)
}

// ReadUpdate is ReadCreate for patch payloads: unknown fields fail with
// InvalidUpdate.
func ReadUpdate(w http.ResponseWriter, r *http.Request, dst any) ([]*multipart.FileHeader, error) {
	return read(w, r, dst, inputval.DecodeUpdate, inputval.DecodeFormUpdate)
}

func read(
	w http.ResponseWriter,
	r *http.Request,
	dst any,
	decodeJSON func(io.Reader, any) error,
	decodeForm func(url.Values, any) error,
) ([]*multipart.FileHeader, error) {
	if !IsMultipart(r) {
		return nil, decodeJSON(r.Body, dst)
	}
	values, files, err := ParseMultipart(w, r)
	if err != nil {
		return nil, err
	}
	if err := decodeForm(values, dst); err != nil {
		return nil, err
	}
	if err := Check(files); err != nil {
		return nil, err
	}
	return files, nil
}
