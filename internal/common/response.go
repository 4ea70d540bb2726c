package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrorBody is the payload under the "error" key of every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data writes v under the "data" envelope.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, map[string]any{"data": v})
}

// JSONError writes the "error" envelope.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]ErrorBody{"error": {Code: code, Message: message, Details: details}})
}

// WriteError renders err. AppErrors carry their own status and code; bare
// ErrNotFound and ErrConflict map to 404 and 409. Anything else is a 500
// whose message is not exposed.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
	case errors.Is(err, ErrNotFound):
		JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrConflict):
		JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

// DecodeJSON reads the request body into dst. Failures come back as 400
// AppErrors that point at the offending offset or field when known.
func DecodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	out := &AppError{Code: "BAD_REQUEST", Message: "invalid payload", HTTPStatus: http.StatusBadRequest, Err: err}
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		out.Message = "request body is required"
	case errors.As(err, &syntaxErr):
		out.Details = map[string]any{"offset": syntaxErr.Offset}
	case errors.As(err, &typeErr) && typeErr.Field != "":
		out.Details = map[string]string{typeErr.Field: typeErr.Type.String()}
	}
	return out
}
