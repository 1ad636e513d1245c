package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1.2346, RoundFloat(1.23456789, 4))
	assert.Equal(t, -7.550261, RoundFloat(-7.5502614, 6))
}

func TestCountDecimalPlacesF64(t *testing.T) {
	assert.Equal(t, 6, CountDecimalPlacesF64(110.780094))
	assert.Equal(t, 0, CountDecimalPlacesF64(42))
	assert.Equal(t, 1, CountDecimalPlacesF64(0.5))
}

func TestReverseG(t *testing.T) {
	assert.Equal(t, []int32{3, 2, 1}, ReverseG([]int32{1, 2, 3}))
	assert.Empty(t, ReverseG([]int32{}))
}

func TestAssertPanic(t *testing.T) {
	assert.NotPanics(t, func() { AssertPanic(true, "fine") })
	assert.Panics(t, func() { AssertPanic(false, "boom") })
}
