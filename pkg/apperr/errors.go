// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientStock Kind = "insufficient_stock"
	KindMinimumOrder      Kind = "minimum_order"
	KindUnavailable       Kind = "unavailable"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string
	Message string
	Code    string
}

// Error is a classified application error. Details carries machine-readable
// context such as the missing identifier or available stock.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	Details map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err (or anything it wraps) has the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func Validation(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "invalid_" + field,
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message, Code: "invalid"}},
	}
}

// ValidationFields builds one error out of several field failures.
func ValidationFields(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: "validation_error", Message: message, Fields: fields}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: "unauthorized", Message: message}
}

func Forbidden(code, message string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: message}
}

func NotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    resource + "_not_found",
		Message: fmt.Sprintf("%s %q not found", resource, id),
		Details: map[string]interface{}{"resource": resource, "id": id},
	}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func InsufficientStock(slug string, available int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Code:    "insufficient_stock",
		Message: fmt.Sprintf("insufficient stock for %q: %d available", slug, available),
		Details: map[string]interface{}{"slug": slug, "available": available},
	}
}

// StockChanged reports an inventory edit that raced with a sale.
func StockChanged(slug string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    "stock_changed",
		Message: fmt.Sprintf("stock of %q changed while it was being edited, reload and retry", slug),
		Details: map[string]interface{}{"slug": slug},
	}
}

func MinimumOrder(minimum, subtotal float64) *Error {
	return &Error{
		Kind:    KindMinimumOrder,
		Code:    "minimum_order_not_met",
		Message: fmt.Sprintf("order subtotal %.2f is below the minimum order value %.2f", subtotal, minimum),
		Details: map[string]interface{}{"minimum": minimum, "subtotal": subtotal},
	}
}

// Unavailable reports a feature that is switched off by configuration.
func Unavailable(code, message string) *Error {
	return &Error{Kind: KindUnavailable, Code: code, Message: message}
}
