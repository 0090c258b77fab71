package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNormaliseISBN tests separator stripping
func TestNormaliseISBN(t *testing.T) {
	assert.Equal(t, "9780131103627", NormaliseISBN("978-0-13-110362-7"))
	assert.Equal(t, "080442957X", NormaliseISBN(" 0-8044-2957-x "))
}

// TestIsNullISBN tests placeholder detection
func TestIsNullISBN(t *testing.T) {
	assert.True(t, IsNullISBN(""))
	assert.True(t, IsNullISBN(NullISBN))
	assert.True(t, IsNullISBN("000-0-00-000000-0"))
	assert.False(t, IsNullISBN("9780131103627"))
}
