package tool

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffCompile(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		dir := writeTool(t, t.TempDir(), "echo", metadataJSON("echo"), false)
		compiler := &fakeCompiler{}

		require.NoError(t, NewHandoff(testLogger(), compiler, nil).Compile(ctx, dir))
		assert.Equal(t, []string{dir}, compiler.calls)

		_, err := os.Stat(ArtifactPath(dir))
		assert.NoError(t, err)
	})

	t.Run("compiler failure", func(t *testing.T) {
		dir := writeTool(t, t.TempDir(), "echo", metadataJSON("echo"), false)
		compiler := &fakeCompiler{err: errors.New("syntax error")}

		err := NewHandoff(testLogger(), compiler, nil).Compile(ctx, dir)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCompile)
		assert.Contains(t, err.Error(), "tool=echo")
		assert.Contains(t, err.Error(), "syntax error")
	})

	t.Run("no artifact produced", func(t *testing.T) {
		dir := writeTool(t, t.TempDir(), "echo", metadataJSON("echo"), false)
		compiler := compilerFunc(func(ctx context.Context, dir string) error { return nil })

		err := NewHandoff(testLogger(), compiler, nil).Compile(ctx, dir)
		assert.ErrorIs(t, err, ErrCompile)
	})

	t.Run("no compiler", func(t *testing.T) {
		err := NewHandoff(testLogger(), nil, nil).Compile(ctx, t.TempDir())
		assert.ErrorIs(t, err, ErrCompile)
	})
}

func TestHandoffInstallDependencies(t *testing.T) {
	ctx := context.Background()

	t.Run("runs in the tool directory", func(t *testing.T) {
		dir := writeTool(t, t.TempDir(), "echo", metadataJSON("echo"), false)
		installer := &fakeInstaller{}

		require.NoError(t, NewHandoff(testLogger(), nil, installer).InstallDependencies(ctx, dir))
		assert.Equal(t, []string{dir}, installer.calls)
	})

	t.Run("installer failure", func(t *testing.T) {
		installer := &fakeInstaller{err: errors.New("module lookup disabled")}
		err := NewHandoff(testLogger(), nil, installer).InstallDependencies(ctx, t.TempDir())
		assert.ErrorIs(t, err, ErrInstall)
	})

	t.Run("no installer", func(t *testing.T) {
		err := NewHandoff(testLogger(), nil, nil).InstallDependencies(ctx, t.TempDir())
		assert.ErrorIs(t, err, ErrInstall)
	})
}

type compilerFunc func(ctx context.Context, dir string) error

func (f compilerFunc) Compile(ctx context.Context, dir string) error {
	return f(ctx, dir)
}
