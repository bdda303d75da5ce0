// Package apperror defines the typed errors returned by services and rendered
// by the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeAuth       Code = "AUTH_ERROR"
	CodeForbidden  Code = "FORBIDDEN"
	CodeNotFound   Code = "NOT_FOUND"
	CodeOutOfStock Code = "OUT_OF_STOCK"
	CodeConflict   Code = "CONFLICT"
	CodeProvider   Code = "PROVIDER_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	PublicMessage string
	// Exposed codes return their own message to the caller; the others only
	// ever show PublicMessage.
	Exposed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", Exposed: true},
	CodeAuth:       {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", Exposed: true},
	CodeForbidden:  {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied", Exposed: true},
	CodeNotFound:   {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", Exposed: true},
	CodeOutOfStock: {HTTPStatus: http.StatusConflict, PublicMessage: "out of stock", Exposed: true},
	CodeConflict:   {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", Exposed: true},
	CodeProvider:   {HTTPStatus: http.StatusBadGateway, PublicMessage: "upstream provider failed", Exposed: true},
	CodeInternal:   {HTTPStatus: http.StatusInternalServerError, PublicMessage: "Internal server error"},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func Validation(message string) *Error { return New(CodeValidation, message) }
func Auth(message string) *Error       { return New(CodeAuth, message) }
func Forbidden(message string) *Error  { return New(CodeForbidden, message) }
func NotFound(message string) *Error   { return New(CodeNotFound, message) }
func OutOfStock(message string) *Error { return New(CodeOutOfStock, message) }
func Conflict(message string) *Error   { return New(CodeConflict, message) }

// Provider wraps an upstream failure, passing its message through verbatim.
func Provider(err error) *Error {
	if err == nil {
		return New(CodeProvider, MetadataFor(CodeProvider).PublicMessage)
	}
	return Wrap(CodeProvider, err, err.Error())
}

func Internal(err error, message string) *Error {
	return Wrap(CodeInternal, err, message)
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// PublicMessage is the text safe to show to an end user.
func (e *Error) PublicMessage() string {
	meta := MetadataFor(e.Code())
	if meta.Exposed && e.Message() != "" {
		return e.Message()
	}
	return meta.PublicMessage
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// From returns err as a typed error, treating anything untyped as internal.
func From(err error) *Error {
	if typed := As(err); typed != nil {
		return typed
	}
	return Internal(err, MetadataFor(CodeInternal).PublicMessage)
}

func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
