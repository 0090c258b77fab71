package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeContext runs the root command under ctx.
func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	clearContexts(rootCmd)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
		clearContexts(rootCmd)
	}()

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// clearContexts drops the context cobra keeps on each command after a
// run, so a cancelled context does not reach later executions.
func clearContexts(cmd *cobra.Command) {
	cmd.SetContext(nil) //nolint:staticcheck // nil resets to the caller's context
	for _, c := range cmd.Commands() {
		clearContexts(c)
	}
}

func TestAcceptFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	assert.True(t, acceptFile("/inbox/a.txt"))
	assert.True(t, acceptFile("/inbox/b.pdf"))
	assert.False(t, acceptFile("/inbox/c.mobi"))

	supportsFormat = nil
	assert.True(t, acceptFile("/inbox/c.mobi"))
}

func TestWatchCmd(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old_book.txt"), []byte("old"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("jpg"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "new-book.pdf"), []byte("pdf"), 0o600)
	}()

	out, err := executeContext(t, ctx, "watch", dir, "--code", "530", "--settle", "50ms")

	require.NoError(t, err)
	require.Len(t, ts.ingest.paths, 2)
	assert.Equal(t, filepath.Join(dir, "old_book.txt"), ts.ingest.paths[0])
	assert.Equal(t, filepath.Join(dir, "new-book.pdf"), ts.ingest.paths[1])

	assert.Equal(t, "old book", ts.ingest.metas[0].Title)
	assert.Equal(t, "new book", ts.ingest.metas[1].Title)
	assert.Equal(t, []string{"Unknown"}, ts.ingest.metas[0].Authors)
	assert.Equal(t, "530", ts.ingest.metas[0].ClassificationCode)
	assert.True(t, ts.ingest.opts[0].Move)
	assert.Contains(t, out, "Watching "+dir)
}

func TestWatchCmd_SkipsExistingAndReportsFailures(t *testing.T) {
	ts, cleanup := setupMocks()
	defer cleanup()
	ts.ingest.err = errors.New("extract failed")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("old"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "broken.txt"), []byte("x"), 0o600)
	}()

	out, err := executeContext(t, ctx, "watch", dir, "--code", "530", "--existing=false", "--settle", "50ms")

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "broken.txt")}, ts.ingest.paths)
	assert.Contains(t, out, "Skipped")
	assert.Contains(t, out, "broken.txt: extract failed")
}

func TestWatchCmd_Validation(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "", "watch", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code")

	_, err = execute(t, "", "watch", t.TempDir(), "--code", "not a code")
	assert.Error(t, err)

	_, err = execute(t, "", "watch", filepath.Join(t.TempDir(), "missing"), "--code", "530")
	assert.Error(t, err)
}
