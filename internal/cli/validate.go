package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fluxstate/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool          `json:"valid"`
	File   string        `json:"file,omitempty"`
	Config *resolvedView `json:"config,omitempty"`
}

// resolvedView is the resolved configuration as printed by validate.
type resolvedView struct {
	BaseURL     string `json:"api_base_url"`
	Timeout     string `json:"api_timeout"`
	Retries     int    `json:"api_retries"`
	JournalPath string `json:"journal_path,omitempty"`
	LogLevel    string `json:"log_level"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Validate a CUE configuration file against the fluxstate schema and
print the resolved configuration, defaults included.

Without an argument, the file given by --config is validated; with
neither, the built-in defaults are shown.

Exit codes:
  0 - Configuration valid
  1 - Configuration invalid
  2 - Command error (unreadable file, etc.)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	formatter.VerboseLog("validating %q", path)

	cfg, err := config.Load(path)
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		_ = formatter.Error("E_CONFIG", cfgErr.Message, map[string]string{"file": cfgErr.File})
		return NewExitError(ExitFailure, "configuration invalid")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	result := ValidationResult{
		Valid: true,
		File:  path,
		Config: &resolvedView{
			BaseURL:     cfg.API.BaseURL,
			Timeout:     cfg.API.Timeout.String(),
			Retries:     cfg.API.Retries,
			JournalPath: cfg.Journal.Path,
			LogLevel:    cfg.Log.Level.String(),
		},
	}

	return formatter.Render(result, func(w io.Writer) {
		if path == "" {
			fmt.Fprintln(w, "✓ Defaults valid")
		} else {
			fmt.Fprintf(w, "✓ %s valid\n", path)
		}
		c := result.Config
		fmt.Fprintf(w, "  api.base_url: %s\n", c.BaseURL)
		fmt.Fprintf(w, "  api.timeout:  %s\n", c.Timeout)
		fmt.Fprintf(w, "  api.retries:  %d\n", c.Retries)
		if c.JournalPath != "" {
			fmt.Fprintf(w, "  journal.path: %s\n", c.JournalPath)
		}
		fmt.Fprintf(w, "  log.level:    %s\n", c.LogLevel)
	})
}
