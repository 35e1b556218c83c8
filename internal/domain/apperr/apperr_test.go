package apperr

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByKindAndCode(t *testing.T) {
	sentinel := New(KindInsufficientStock, CodeOrderInsufficientStock, "insufficient stock")
	detailed := sentinel.Withf("insufficient stock for product %s", "p1")

	assert.ErrorIs(t, detailed, sentinel)
	assert.ErrorIs(t, fmt.Errorf("place order: %w", detailed), sentinel)
	assert.Equal(t, "insufficient stock for product p1", detailed.Error())
	assert.Equal(t, "insufficient stock", sentinel.Message, "Withf must not mutate the sentinel")

	other := New(KindConflict, CodeOrderInsufficientStock, "insufficient stock")
	assert.NotErrorIs(t, detailed, other)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "not found", err: NotFound("product", "p1"), want: KindNotFound},
		{name: "wrapped invalid", err: errors.Wrap(Invalid("name", "required"), "create"), want: KindInvalidInput},
		{name: "forbidden", err: Forbidden("not yours"), want: KindForbidden},
		{
			name: "payment declined",
			err:  errors.Wrap(New(KindPaymentFailed, CodeOrderPaymentFailed, "payment failed"), "pay"),
			want: KindPaymentFailed,
		},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWithField(t *testing.T) {
	err := Invalid("", "must not be empty").WithField("city")

	e, ok := From(err)
	require.True(t, ok)
	assert.Equal(t, "city", e.Field)
	assert.Equal(t, "city: must not be empty", err.Error())
	assert.Equal(t, CodeValidation, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("x")))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "payment_failed", KindPaymentFailed.String())
	assert.Equal(t, "invalid_state_transition", KindInvalidStateTransition.String())
	assert.Equal(t, "internal", Kind(99).String())
}
