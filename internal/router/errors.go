package router

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindInsufficientStock: http.StatusConflict,
	apperr.KindMinimumOrder:      http.StatusUnprocessableEntity,
	apperr.KindUnavailable:       http.StatusServiceUnavailable,
}

// respondError writes err in the response envelope. Unclassified errors are
// logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Printf("Error: %s %s [%s]: %v", c.Request.Method, c.FullPath(), requestID(c), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, global.ErrorResponse("Internal server error", nil))
		return
	}

	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	resp := global.ErrorResponse(appErr.Message, fieldErrors(appErr.Fields))
	resp.Code = appErr.Code
	resp.Details = appErr.Details
	c.AbortWithStatusJSON(status, resp)
}

func fieldErrors(fields []apperr.FieldError) []global.ValidationError {
	if len(fields) == 0 {
		return nil
	}
	out := make([]global.ValidationError, len(fields))
	for i, f := range fields {
		out[i] = global.ValidationError{Field: f.Field, Message: f.Message, Code: f.Code}
	}
	return out
}

// bindError converts a gin binding failure into a validation error.
func bindError(err error) *apperr.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{
				Field:   jsonFieldName(fe),
				Message: validationMessage(fe),
				Code:    fe.Tag(),
			})
		}
		return apperr.ValidationFields("Invalid request data", fields...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperr.Validation(typeErr.Field, "must be a "+typeErr.Type.String())
	}
	return apperr.ValidationFields("Invalid JSON format", apperr.FieldError{Field: "body", Message: err.Error(), Code: "json_parse_error"})
}

// jsonFieldName turns "CreateOrderRequest.Items[0].Quantity" into "items[0].quantity".
func jsonFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
