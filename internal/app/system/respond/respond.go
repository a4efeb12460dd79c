// Package respond writes the JSON envelopes every endpoint shares:
//
//	{"status":"success","data":{...}}
//	{"status":"success","message":"..."}
//	{"status":"error","message":"...","errors":[...]}
//
// List responses carry a pagination block next to the data.
package respond

import (
	"net/http"

	"github.com/dalemusser/automationhub/internal/app/system/apperr"
	"github.com/dalemusser/automationhub/internal/app/system/paging"
	"github.com/go-chi/render"
)

// Envelope is the response body shape.
type Envelope struct {
	Status     string              `json:"status"`
	Message    string              `json:"message,omitempty"`
	Data       any                 `json:"data,omitempty"`
	Pagination *paging.Meta        `json:"pagination,omitempty"`
	Errors     []apperr.FieldError `json:"errors,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

// OK writes 200 with data.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusOK, Envelope{Status: statusSuccess, Data: data})
}

// Created writes 201 with data.
func Created(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusCreated, Envelope{Status: statusSuccess, Data: data})
}

// Message writes a success envelope carrying only a message.
func Message(w http.ResponseWriter, r *http.Request, code int, msg string) {
	write(w, r, code, Envelope{Status: statusSuccess, Message: msg})
}

// MessageData writes a success envelope carrying a message and data.
func MessageData(w http.ResponseWriter, r *http.Request, code int, msg string, data any) {
	write(w, r, code, Envelope{Status: statusSuccess, Message: msg, Data: data})
}

// Page writes 200 with a list and its pagination block.
func Page(w http.ResponseWriter, r *http.Request, data any, meta paging.Meta) {
	write(w, r, http.StatusOK, Envelope{Status: statusSuccess, Data: data, Pagination: &meta})
}

// Error writes the error envelope for err. Internal failures are reported
// with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	write(w, r, apperr.Status(err), Envelope{
		Status:  statusError,
		Message: apperr.PublicMessage(err),
		Errors:  apperr.FieldsOf(err),
	})
}

// Fail writes an error envelope with an explicit status code, for failures
// outside the apperr taxonomy.
func Fail(w http.ResponseWriter, r *http.Request, code int, msg string) {
	write(w, r, code, Envelope{Status: statusError, Message: msg})
}

func write(w http.ResponseWriter, r *http.Request, code int, body Envelope) {
	render.Status(r, code)
	render.JSON(w, r, body)
}
