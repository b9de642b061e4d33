package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("create order: %w", InsufficientStock("pen-blue", 2))

	assert.Equal(t, KindInsufficientStock, KindOf(err))
	assert.True(t, IsKind(err, KindInsufficientStock))
	assert.False(t, IsKind(err, KindNotFound))

	var appErr *Error
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "pen-blue", appErr.Details["slug"])
	assert.Equal(t, 2, appErr.Details["available"])
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindValidation))
}

func TestErrorsIs_MatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFound("product", "pen-red"))

	assert.True(t, errors.Is(err, &Error{Kind: KindNotFound}))
	assert.True(t, errors.Is(err, &Error{Kind: KindNotFound, Code: "product_not_found"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindNotFound, Code: "order_not_found"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindConflict}))
}

func TestError_MessageIncludesCause(t *testing.T) {
	err := &Error{Kind: KindConflict, Message: "duplicate", Cause: errors.New("E11000")}
	assert.Equal(t, "duplicate: E11000", err.Error())
	assert.Equal(t, "E11000", errors.Unwrap(err).Error())
}

func TestMinimumOrder_Details(t *testing.T) {
	err := MinimumOrder(100, 60)
	assert.Equal(t, KindMinimumOrder, err.Kind)
	assert.Equal(t, 100.0, err.Details["minimum"])
	assert.Equal(t, 60.0, err.Details["subtotal"])
	assert.Contains(t, err.Error(), "60.00")
}
