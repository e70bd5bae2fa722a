package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillforge/editorhost/internal/config"
	"github.com/quillforge/editorhost/internal/logger"
	editorhosterrors "github.com/quillforge/editorhost/pkg/errors"
)

type validateOptions struct {
	ConfigPath string
	Verbose    bool
}

var validateCmdRunner = runValidate

func newValidateCmd(root *rootFlags) *cobra.Command {
	opts := validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate an editor configuration file",
		Long: `Validate parses the YAML configuration, applies defaults and checks every
field against the configuration rules. Returns exit code 0 when the
configuration is usable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = args[0]
			opts.Verbose = root.verbose
			return validateCmdRunner(cmd, opts)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, opts validateOptions) error {
	out := cmd.OutOrStdout()

	cfg, err := config.ParseFile(opts.ConfigPath)
	if err != nil {
		var parseErr *editorhosterrors.ParseError
		if errors.As(err, &parseErr) && parseErr.Line > 0 {
			fmt.Fprintf(out, "%s %s (line %d)\n", styled(failureStyle, "invalid:"), parseErr.Message, parseErr.Line)
		} else {
			fmt.Fprintf(out, "%s %v\n", styled(failureStyle, "invalid:"), err)
		}
		return err
	}

	fmt.Fprintf(out, "%s %s\n", styled(successStyle, "valid:"), opts.ConfigPath)
	if opts.Verbose {
		log, lerr := logger.New(logger.Options{Level: "debug", HumanReadable: true})
		if lerr == nil {
			log.WithFields(map[string]any{
				"plugins":  len(cfg.Plugins),
				"policy":   string(cfg.ResolutionPolicy),
				"theme":    cfg.Theme,
				"language": cfg.Language,
			}).Debug("configuration summary")
		}
	}
	return nil
}
