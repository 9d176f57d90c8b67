package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskKeyShortValue(t *testing.T) {
	assert.Equal(t, "****", maskKey("sk-123"))
	assert.Equal(t, "****", maskKey(""))
}

func TestMaskKeyRevealsPrefixAndSuffix(t *testing.T) {
	assert.Equal(t, "sk-1****6789", maskKey("sk-123456789"))
}

func TestMaskTokenShortValue(t *testing.T) {
	assert.Equal(t, "****", maskToken("kh-short"))
}

func TestMaskTokenRevealsPrefixAndSuffix(t *testing.T) {
	assert.Equal(t, "kh-abc****wxyz", maskToken("kh-abcdefghijklmnopqrstuvwxyz"))
}

func TestMaskPasswordPresentVsAbsent(t *testing.T) {
	assert.Equal(t, "****", maskPassword("hunter2"))
	assert.Equal(t, "", maskPassword(""))
}
