package tool

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("message names tool and step", func(t *testing.T) {
		err := newError(CodeNotCompiled, "echo", "tool is not compiled, compile it first", nil)
		assert.Equal(t, "[NOT_COMPILED] tool=echo tool is not compiled, compile it first", err.Error())
	})

	t.Run("message includes cause", func(t *testing.T) {
		err := newError(CodeStore, "echo", "failed to copy source", errors.New("permission denied"))
		assert.Equal(t, "[STORE] tool=echo failed to copy source: permission denied", err.Error())
	})

	t.Run("message without tool", func(t *testing.T) {
		err := newError(CodeMetadataParse, "", "could not parse metadata JSON", nil)
		assert.Equal(t, "[METADATA_PARSE] could not parse metadata JSON", err.Error())
	})

	t.Run("is matches by code", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", newError(CodeNotFound, "ghost", "tool not found", nil))
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrNotCompiled)
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("unwrap exposes cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := newError(CodeStore, "echo", "failed to write metadata", cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("code of plain error is empty", func(t *testing.T) {
		assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
		assert.Equal(t, ErrorCode(""), CodeOf(nil))
	})
}

func TestLoadAllError(t *testing.T) {
	err := &LoadAllError{Failures: map[string]error{
		"zeta":  newError(CodeNotCompiled, "zeta", "tool is not compiled, compile it first", nil),
		"alpha": newError(CodeMetadataLoad, "alpha", "could not load metadata", nil),
	}}

	t.Run("message sorted by name", func(t *testing.T) {
		msg := err.Error()
		assert.Contains(t, msg, "[LOAD_ALL] 2 of the tools failed to load")
		require.Less(t, strings.Index(msg, "tool=alpha"), strings.Index(msg, "tool=zeta"))
	})

	t.Run("matches aggregate and members", func(t *testing.T) {
		var wrapped error = err
		assert.ErrorIs(t, wrapped, ErrLoadAll)
		assert.ErrorIs(t, wrapped, ErrNotCompiled)
		assert.ErrorIs(t, wrapped, ErrMetadataLoad)
		assert.NotErrorIs(t, wrapped, ErrImport)

		var target *LoadAllError
		require.ErrorAs(t, wrapped, &target)
		assert.Len(t, target.Failures, 2)
	})
}
