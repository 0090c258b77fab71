package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"data-dir", "library", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "v", rootCmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestRootCmd_HasCommands(t *testing.T) {
	want := []string{
		"add", "remove", "edit", "list", "go", "info", "find", "search",
		"question", "exam", "index", "settings", "watch", "mcp", "shell", "version",
	}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for alias, name := range map[string]string{"delete": "remove", "ls": "list", "chat": "question"} {
		cmd, _, err := rootCmd.Find([]string{alias})
		require.NoError(t, err, alias)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestBootstrap_InjectsServicesAndCleansUp(t *testing.T) {
	SetServices(nil)
	defer SetServices(nil)

	catalog := newMockCatalog()
	var got Options
	cleaned := 0
	SetBootstrap(func(o Options) (*Services, func(), error) {
		got = o
		return &Services{Catalog: catalog}, func() { cleaned++ }, nil
	})
	defer SetBootstrap(nil)

	out, err := execute(t, "", "--data-dir", "/tmp/lib-data", "--library", "/tmp/books", "list")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/lib-data", got.DataDir)
	assert.Equal(t, "/tmp/books", got.Library)
	assert.NotNil(t, got.Flags)
	assert.Equal(t, 1, cleaned)
	assert.Contains(t, out, "Waves")
}

func TestBootstrap_Error(t *testing.T) {
	SetBootstrap(func(Options) (*Services, func(), error) {
		return nil, nil, errors.New("catalog is locked")
	})
	defer SetBootstrap(nil)

	_, err := execute(t, "", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog is locked")
}

func TestBootstrap_NilServices(t *testing.T) {
	SetBootstrap(func(Options) (*Services, func(), error) {
		return nil, nil, nil
	})
	defer SetBootstrap(nil)

	_, err := execute(t, "", "list")
	assert.Error(t, err)
}
