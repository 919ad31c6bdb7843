package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/ishikawa/pkg/tool"
)

// runCLI executes args against a fresh root and config in a temp dir
func runCLI(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.json")
	cmd := GetRootCmd()
	cmd.SetArgs(append([]string{"--config", configPath, "--root", root, "--log-level", "error"}, args...))

	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	return output.String(), err
}

func TestListCommand(t *testing.T) {
	t.Run("no tools", func(t *testing.T) {
		out, err := runCLI(t, t.TempDir(), "list")
		require.NoError(t, err)
		assert.Equal(t, "No tools registered.\n", out)
	})

	t.Run("lists tool directories", func(t *testing.T) {
		root := t.TempDir()
		for _, name := range []string{"weather", "echo"} {
			require.NoError(t, os.MkdirAll(filepath.Join(root, tool.ToolsDirName, name), 0755))
		}
		require.NoError(t, os.WriteFile(filepath.Join(root, tool.ToolsDirName, "README"), []byte("x"), 0644))

		out, err := runCLI(t, root, "list")
		require.NoError(t, err)
		assert.Equal(t, "- echo\n- weather\n", out)
	})
}

func TestInfoCommand(t *testing.T) {
	t.Run("missing tool", func(t *testing.T) {
		_, err := runCLI(t, t.TempDir(), "info", "ghost")
		require.Error(t, err)
		assert.ErrorIs(t, err, tool.ErrNotFound)
		assert.Equal(t, 2, exitCode(err))
	})

	t.Run("uncompiled tool", func(t *testing.T) {
		root := t.TempDir()
		dir := filepath.Join(root, tool.ToolsDirName, "echo")
		require.NoError(t, os.MkdirAll(dir, 0755))
		metadata := `{"name":"echo","description":"Echo","parameters":{}}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, tool.MetadataFileName), []byte(metadata), 0644))

		_, err := runCLI(t, root, "info", "echo")
		require.Error(t, err)
		assert.ErrorIs(t, err, tool.ErrNotCompiled)
	})
}

func TestRunCommand(t *testing.T) {
	t.Run("requires a name", func(t *testing.T) {
		_, err := runCLI(t, t.TempDir(), "run")
		require.Error(t, err)
	})

	t.Run("missing tool", func(t *testing.T) {
		_, err := runCLI(t, t.TempDir(), "run", "ghost", "1")
		assert.ErrorIs(t, err, tool.ErrNotFound)
	})
}

func TestRegisterCommand(t *testing.T) {
	t.Run("rejects invalid metadata", func(t *testing.T) {
		root := t.TempDir()
		source := filepath.Join(t.TempDir(), "index.go")
		require.NoError(t, os.WriteFile(source, []byte("package main\n"), 0644))

		_, err := runCLI(t, root, "register",
			"--name", "echo",
			"--source", source,
			"--metadata", filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
		assert.ErrorIs(t, err, tool.ErrMetadataParse)

		_, statErr := os.Stat(filepath.Join(root, tool.ToolsDirName, "echo"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestParseArgs(t *testing.T) {
	args := parseArgs([]string{"42", `"quoted"`, "plain", `{"a":1}`, "[1,2]", "true"})

	require.Len(t, args, 6)
	assert.Equal(t, float64(42), args[0])
	assert.Equal(t, "quoted", args[1])
	assert.Equal(t, "plain", args[2])
	assert.Equal(t, map[string]any{"a": float64(1)}, args[3])
	assert.Equal(t, []any{float64(1), float64(2)}, args[4])
	assert.Equal(t, true, args[5])

	assert.Empty(t, parseArgs(nil))
}
