package app_error

import (
	"encoding/json"
	"net/http"
)

// Kind separates "the row is absent" from "the query failed" so callers never
// have to infer absence from an error code match.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindStoreUnavailable Kind = "store_unavailable"
	KindInternal         Kind = "internal"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e AppError) Error() string {
	return e.Message
}

func (e AppError) JSON(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(e)
}

func NewAppError(code int, kind Kind, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: msg,
		Field:   field,
	}
}

func Validation(msg, field string) *AppError {
	return NewAppError(http.StatusBadRequest, KindValidation, msg, field)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, KindNotFound, msg, "")
}

func StoreUnavailable(msg string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, KindStoreUnavailable, msg, "")
}

func Internal(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, KindInternal, msg, "")
}
