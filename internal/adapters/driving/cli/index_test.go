package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/librarian/internal/core/domain"
)

func TestIndexRebuildCmd(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()

	out, err := execute(t, "", "index", "rebuild")

	require.NoError(t, err)
	assert.Equal(t, 1, ts.index.rebuilds)
	assert.Contains(t, out, "Index rebuilt.")
}

func TestIndexRebuildCmd_Error(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()
	ts.index.err = errors.New("disk full")

	_, err := execute(t, "", "index", "rebuild")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild failed: disk full")
}

func TestIndexVerifyCmd(t *testing.T) {
	tests := []struct {
		name     string
		report   *domain.IndexReport
		contains []string
	}{
		{
			name:     "consistent",
			report:   &domain.IndexReport{IndexedChunks: 12, CatalogChunks: 12},
			contains: []string{"Indexed chunks:   12", "Catalogue chunks: 12", "Index is consistent."},
		},
		{
			name: "inconsistent",
			report: &domain.IndexReport{
				IndexedChunks:  10,
				CatalogChunks:  12,
				UnindexedBooks: []string{"01HZXROME"},
				StaleChunks:    []string{"01HZXGONE-0"},
			},
			contains: []string{
				"unindexed book: 01HZXROME",
				"stale chunk:    01HZXGONE-0",
				"Index is inconsistent.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupMocks()
			defer cleanup()
			ts.index.report = tt.report

			out, err := execute(t, "", "index", "verify")

			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}
