package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestNew(t *testing.T) {
	extractor := New()
	require.NotNil(t, extractor)
	assert.IsType(t, &Extractor{}, extractor)
}

func TestSupportedTypes(t *testing.T) {
	types := New().SupportedTypes()

	require.NotEmpty(t, types)
	assert.Contains(t, types, "txt")
	assert.Contains(t, types, "json")
	assert.NotContains(t, types, "md")
}

func TestExtract_Success(t *testing.T) {
	path := writeFile(t, "book.txt", []byte("This is plain text content.\n"))

	text, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "This is plain text content.", text)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := New().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtract_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, writeFile(t, "book.txt", []byte("x")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{name: "plain", input: []byte("hello"), expected: "hello"},
		{name: "byte order mark", input: []byte("\xEF\xBB\xBFhello"), expected: "hello"},
		{name: "windows line endings", input: []byte("a\r\nb\rc"), expected: "a\nb\nc"},
		{name: "invalid utf8", input: []byte("a\xffb"), expected: "a�b"},
		{name: "unicode", input: []byte("naïve café"), expected: "naïve café"},
		{name: "empty", input: []byte("  \n "), expected: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Decode(tc.input))
		})
	}
}
