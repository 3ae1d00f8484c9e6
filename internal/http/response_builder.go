// Package http serves the dashboard views as a JSON API.
//
// This file implements the builder used for every JSON response. Bodies
// follow the gateway's own shape: {success, message} plus an optional data
// payload.

package http

import (
	"encoding/json"
	"net/http"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       envelope
}

// NewJSONResponse creates a successful response with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
		body:       envelope{Success: true},
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.body.Message = msg
	return b
}

// Data sets the payload placed under "data".
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.body.Data = v
	return b
}

// Fail marks the response as unsuccessful with the given status and message.
func (b *JSONResponseBuilder) Fail(code int, msg string) *JSONResponseBuilder {
	b.statusCode = code
	b.body.Success = false
	b.body.Message = msg
	return b
}

// Write sends the response. Headers must not have been written yet.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) error {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	return json.NewEncoder(w).Encode(b.body)
}

// writeData is shorthand for a 200 response carrying v.
func writeData(w http.ResponseWriter, v any) {
	_ = NewJSONResponse().Data(v).Write(w)
}

// writeMessage is shorthand for a 200 response carrying only a message.
func writeMessage(w http.ResponseWriter, msg string) {
	_ = NewJSONResponse().Message(msg).Write(w)
}
