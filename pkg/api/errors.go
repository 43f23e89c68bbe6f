package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is the client-facing error shape: {"error": "<message>"}.
type Error struct {
	Status  int
	Message string
	// Log is the internal cause, logged but never serialized.
	Log error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Log
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(ErrorBody{Error: e.Message})
}

type ErrorBody struct {
	Error string `json:"error"`
}

func NewError(status int, msg string, cause error) *Error {
	return &Error{Status: status, Message: msg, Log: cause}
}

func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func Internal(msg string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Log: cause}
}

// Unavailable reports an upstream the relay could not talk to.
func Unavailable(msg string, cause error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Message: msg, Log: cause}
}
