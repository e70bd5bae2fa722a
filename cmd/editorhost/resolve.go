package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillforge/editorhost/internal/catalog"
	"github.com/quillforge/editorhost/internal/config"
	"github.com/quillforge/editorhost/internal/logger"
	"github.com/quillforge/editorhost/internal/plugin"
)

type resolveOptions struct {
	ConfigPath string
	Verbose    bool
	JSON       bool
}

type resolveReport struct {
	Requested []string `json:"requested"`
	Resolved  []string `json:"resolved"`
	Warnings  []string `json:"warnings,omitempty"`
}

var resolveCmdRunner = runResolve

func newResolveCmd(root *rootFlags) *cobra.Command {
	opts := resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <config-file>",
		Short: "Resolve the plugin set a configuration would load",
		Long: `Resolve completes the requested plugin set under the configured resolution
policy, applies the conflict filters the editor would apply at creation time
and prints the outcome, including every plugin that would be dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = args[0]
			opts.Verbose = root.verbose
			return resolveCmdRunner(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the report in JSON format")

	return cmd
}

func runResolve(cmd *cobra.Command, opts resolveOptions) error {
	out := cmd.OutOrStdout()

	cfg, err := config.ParseFile(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", styled(failureStyle, "error:"), err)
		return err
	}

	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: !opts.JSON})
	if err != nil {
		return err
	}

	cat := catalog.Bundled()

	resolved, err := cfg.ResolvePluginNames(cat)
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", styled(failureStyle, "error:"), err)
		return err
	}

	_, dropped := plugin.FilterConflicting(cfg.Plugins, cat, plugin.Options{
		AllowConfigRequired: cfg.AllowConfigRequired,
		StrictLoading:       cfg.StrictLoading,
	}, log)

	report := resolveReport{
		Requested: cfg.PluginNames(),
		Resolved:  resolved,
	}
	for _, d := range dropped {
		report.Warnings = append(report.Warnings, d.Error())
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintln(out, styled(titleStyle, "Plugin resolution"))
	fmt.Fprintf(out, "  policy: %s\n", cfg.ResolutionPolicy)
	fmt.Fprintf(out, "  requested: %d, resolved: %d\n\n", len(report.Requested), len(report.Resolved))

	for _, name := range report.Resolved {
		fmt.Fprintf(out, "  %s %s\n", styled(successStyle, "+"), name)
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintln(out)
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "  %s %s\n", styled(warningStyle, "!"), w)
		}
	}
	if len(report.Resolved) == 0 {
		fmt.Fprintln(out, styled(dimStyle, "  (no plugins)"))
	}
	return nil
}
