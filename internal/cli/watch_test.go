package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe to read while a command writes to it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCommand(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		sub, _, err := GetRootCmd().Find([]string{"watch"})
		require.NoError(t, err)

		debounce := sub.Flags().Lookup("debounce")
		require.NotNil(t, debounce)
		assert.Equal(t, "200ms", debounce.DefValue)

		metricsAddr := sub.Flags().Lookup("metrics-addr")
		require.NotNil(t, metricsAddr)
		assert.Equal(t, "", metricsAddr.DefValue)
	})

	t.Run("serves metrics until cancelled", func(t *testing.T) {
		t.Cleanup(func() { watchMetricsAddr = "" })

		root := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cmd := GetRootCmd()
		cmd.SetArgs([]string{
			"--config", filepath.Join(t.TempDir(), "config.json"),
			"--root", root,
			"--log-level", "error",
			"watch", "--metrics-addr", "127.0.0.1:0",
		})
		out := &syncBuffer{}
		cmd.SetOut(out)
		cmd.SetErr(io.Discard)

		done := make(chan error, 1)
		go func() { done <- cmd.ExecuteContext(ctx) }()

		var addr string
		require.Eventually(t, func() bool {
			for _, line := range strings.Split(out.String(), "\n") {
				if rest, ok := strings.CutPrefix(line, "Metrics at http://"); ok {
					addr = strings.TrimSuffix(rest, "/metrics")
					return strings.Contains(out.String(), "Watching ")
				}
			}
			return false
		}, 5*time.Second, 10*time.Millisecond)

		resp, err := http.Get("http://" + addr + "/metrics")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "tool_cache_entries")

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop after cancel")
		}
		assert.DirExists(t, filepath.Join(root, "tools"))
	})
}
