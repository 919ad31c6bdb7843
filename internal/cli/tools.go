package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/harun/ishikawa/internal/tracing"
	"github.com/harun/ishikawa/pkg/tool"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var (
	registerName        string
	registerSource      string
	registerMetadata    string
	registerAutoInstall bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register and compile a tool",
	Long: `Copy a tool's source into the tools directory, write its function.json
and go.mod, optionally install its dependencies, then compile it.
--metadata accepts inline JSON or a path to a JSON file.`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var compileCmd = &cobra.Command{
	Use:   "compile <name>",
	Short: "Recompile a registered tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

var runCmd = &cobra.Command{
	Use:   "run <name> [arg...]",
	Short: "Load a tool and call its entry point",
	Long: `Load a tool and call its entry point. Each argument is decoded as JSON
when it parses, otherwise it is passed as a string. The result is printed
as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show the metadata of a tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "tool name")
	registerCmd.Flags().StringVar(&registerSource, "source", "", "path to the tool's Go source file")
	registerCmd.Flags().StringVar(&registerMetadata, "metadata", "", "metadata JSON or path to a JSON file")
	registerCmd.Flags().BoolVar(&registerAutoInstall, "auto-install", false, "run go mod tidy before compiling")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("source")
	_ = registerCmd.MarkFlagRequired("metadata")

	rootCmd.AddCommand(listCmd, registerCmd, compileCmd, runCmd, infoCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// A root without a tools directory has nothing registered yet
	names, err := a.manager.List(cmd.Context())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No tools registered.")
		return nil
	}
	for _, name := range names {
		fmt.Fprintf(out, "- %s\n", name)
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := tracing.WithTool(cmd.Context(), registerName)
	stored, err := a.manager.Register(ctx, tool.RegisterRequest{
		Name:        registerName,
		SourcePath:  registerSource,
		AutoInstall: registerAutoInstall,
		Metadata:    registerMetadata,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s at %s\n", registerName, stored.Dir)
	return nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := tracing.WithTool(cmd.Context(), args[0])
	if err := a.manager.Compile(ctx, args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Compiled %s\n", args[0])
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := tracing.WithTool(cmd.Context(), args[0])
	result, err := a.manager.Execute(ctx, args[0], parseArgs(args[1:])...)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.manager.Get(tracing.WithTool(cmd.Context(), args[0]), args[0])
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(t.Metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, string(data))
	fmt.Fprintf(out, "entry point: %s\n", t.Export)
	return nil
}

// parseArgs decodes each argument as JSON, falling back to the raw string
func parseArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, s := range raw {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			v = s
		}
		args = append(args, v)
	}
	return args
}
