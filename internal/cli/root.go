package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harun/ishikawa/internal/tracing"
	"github.com/harun/ishikawa/pkg/tool"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
	rootDir  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ishikawa",
	Short: "Ishikawa - dynamic tool manager",
	Long: `Ishikawa registers, compiles and loads Go tools at runtime.
A tool is a directory holding its source, a function.json metadata file
and a go.mod manifest. Compiled tools run as plugin subprocesses and are
cached after their first load.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SetContext(tracing.NewRequestContext(cmd.Context()))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// Main runs the root command with ctx and returns the process exit status.
// A missing tool exits 2, any other failure 1.
func Main(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if tool.CodeOf(err) == tool.CodeNotFound {
		return 2
	}
	return 1
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ishikawa.json or $HOME/.ishikawa/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "directory holding the tools directory (default is the working directory)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
