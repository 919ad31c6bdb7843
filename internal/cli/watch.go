package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/ishikawa/pkg/toolwatch"
)

var (
	watchDebounce    time.Duration
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild tools when their files change",
	Long: `Watch the tools directory and rebuild a tool when its files change.
A change to index.go recompiles the tool. A change to go.mod installs its
dependencies first. Runs until interrupted. With --metrics-addr the build
counters are served at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "quiet period before a rebuild starts")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	toolsDir := a.manager.Layout().ToolsDir()
	if err := os.MkdirAll(toolsDir, 0755); err != nil {
		return fmt.Errorf("failed to create tools directory: %w", err)
	}

	out := cmd.OutOrStdout()
	w, err := toolwatch.New(a.log.GetZerolog(), toolwatch.Config{
		ToolsDir:           toolsDir,
		StabilityThreshold: watchDebounce,
		Rebuilder:          a.manager,
		OnRebuild: func(name string, action toolwatch.Action, err error) {
			if err != nil {
				fmt.Fprintf(out, "%s: %s failed: %v\n", name, action, err)
				return
			}
			fmt.Fprintf(out, "%s: %s done\n", name, action)
		},
	})
	if err != nil {
		return err
	}

	defer w.Stop()

	if watchMetricsAddr != "" {
		srv, err := a.metrics.Listen(watchMetricsAddr, a.log.GetZerolog())
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		fmt.Fprintf(out, "Metrics at http://%s/metrics\n", srv.Addr())
	}

	ctx := cmd.Context()
	if err := w.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "Watching %s\n", toolsDir)
	<-ctx.Done()
	return nil
}
