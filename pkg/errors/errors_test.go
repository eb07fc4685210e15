package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesLocation(t *testing.T) {
	err := New("something broke")

	file, line := err.Location()
	assert.True(t, strings.HasSuffix(file, "errors_test.go"))
	assert.Greater(t, line, 0)
	assert.Equal(t, "something broke", err.Error())
}

func TestWrapPreservesChain(t *testing.T) {
	err := Wrap(ErrNoAnnotationData, "analysis rejected")

	assert.True(t, Is(err, ErrNoAnnotationData))
	assert.Contains(t, err.Error(), "analysis rejected")
	assert.Contains(t, err.Error(), "no annotation data")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWithFieldDoesNotMutateOriginal(t *testing.T) {
	base := New("base", map[string]interface{}{"a": 1})
	derived := base.WithField("b", 2)

	assert.Len(t, base.Fields(), 1)
	require.Len(t, derived.Fields(), 2)
	assert.Equal(t, 2, derived.Fields()["b"])
	assert.Contains(t, derived.Error(), "a=1")
}

func TestWithCode(t *testing.T) {
	err := New("weights rejected").WithCode("INVALID_WEIGHTS")
	assert.Equal(t, "INVALID_WEIGHTS", err.Code)
}

func TestAsFindsStructuredError(t *testing.T) {
	var target *Error
	wrapped := Wrap(New("inner"), "outer")

	require.True(t, As(wrapped, &target))
	assert.Equal(t, "outer", target.message)
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNoAnnotationData, ErrInvalidAnnotation, ErrInvalidWeights, ErrPublishFailed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b))
			}
		}
	}
}
