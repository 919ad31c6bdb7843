package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/ishikawa/pkg/tool"
)

// recordingRunner records commands and returns a fixed error
type recordingRunner struct {
	commands []Command
	err      error
}

func (r *recordingRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	r.commands = append(r.commands, cmd)
	if r.err != nil {
		return &Result{}, r.err
	}
	return &Result{Success: true, Duration: time.Millisecond}, nil
}

func TestGoCompiler(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("runs go build into dist", func(t *testing.T) {
		dir := t.TempDir()
		runner := &recordingRunner{}
		compiler := NewGoCompiler(logger, runner, Config{BuildTimeout: time.Minute, Verbose: true})

		require.NoError(t, compiler.Compile(context.Background(), dir))

		require.Len(t, runner.commands, 1)
		cmd := runner.commands[0]
		assert.Equal(t, "go", cmd.Name)
		assert.Equal(t, []string{"build", "-trimpath", "-o", filepath.Join("dist", "index"), "."}, cmd.Args)
		assert.Equal(t, dir, cmd.WorkDir)
		assert.Equal(t, "0", cmd.Env["CGO_ENABLED"])
		assert.Equal(t, "local", cmd.Env["GOTOOLCHAIN"])
		assert.Equal(t, time.Minute, cmd.Timeout)
		assert.True(t, cmd.Verbose)

		info, err := os.Stat(filepath.Join(dir, tool.BuildDirName))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("custom go binary", func(t *testing.T) {
		runner := &recordingRunner{}
		compiler := NewGoCompiler(logger, runner, Config{GoBinary: "/usr/local/go/bin/go"})

		require.NoError(t, compiler.Compile(context.Background(), t.TempDir()))
		assert.Equal(t, "/usr/local/go/bin/go", runner.commands[0].Name)
	})

	t.Run("runner error is returned", func(t *testing.T) {
		runner := &recordingRunner{err: errors.New("go build failed")}
		compiler := NewGoCompiler(logger, runner, Config{})

		err := compiler.Compile(context.Background(), t.TempDir())
		assert.EqualError(t, err, "go build failed")
	})

	t.Run("implements tool compiler", func(t *testing.T) {
		var _ tool.Compiler = NewGoCompiler(logger, NewExecRunner(), Config{})
	})
}

func TestGoInstaller(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("runs go mod tidy", func(t *testing.T) {
		dir := t.TempDir()
		runner := &recordingRunner{}
		installer := NewGoInstaller(logger, runner, Config{InstallTimeout: 2 * time.Minute})

		require.NoError(t, installer.Install(context.Background(), dir))

		require.Len(t, runner.commands, 1)
		cmd := runner.commands[0]
		assert.Equal(t, []string{"mod", "tidy"}, cmd.Args)
		assert.Equal(t, dir, cmd.WorkDir)
		assert.Equal(t, 2*time.Minute, cmd.Timeout)
		assert.Equal(t, "-mod=mod", cmd.Env["GOFLAGS"])
	})

	t.Run("runner error is returned", func(t *testing.T) {
		runner := &recordingRunner{err: errors.New("module lookup disabled")}
		err := NewGoInstaller(logger, runner, Config{}).Install(context.Background(), t.TempDir())
		assert.EqualError(t, err, "module lookup disabled")
	})

	t.Run("implements tool installer", func(t *testing.T) {
		var _ tool.Installer = NewGoInstaller(logger, NewExecRunner(), Config{})
	})
}

func TestCompileWithHandoff(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	script := filepath.Join(t.TempDir(), "fakego")
	content := "#!/bin/sh\nmkdir -p dist && printf '#!/bin/sh\\n' > dist/index\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))

	handoff := tool.NewHandoff(zerolog.Nop(), NewGoCompiler(zerolog.Nop(), NewExecRunner(), Config{GoBinary: script}), nil)
	require.NoError(t, handoff.Compile(context.Background(), dir))

	_, err := os.Stat(tool.ArtifactPath(dir))
	assert.NoError(t, err)
}
