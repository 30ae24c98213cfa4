package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/pinbot/internal/config"
)

// ConfigIssue is one problem found in a config file.
type ConfigIssue struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult is the payload of a successful validate command.
type ValidationResult struct {
	Valid      bool          `json:"valid"`
	Source     string        `json:"source"`
	DiskBudget int64         `json:"disk_budget"`
	Config     config.Config `json:"config"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and print the effective configuration",
		Long: `Check the config file against the schema and print the configuration
pinbot would run with, defaults included.

Example:
  pinbot validate --config ./pinbot.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, fmt.Sprintf("cannot read %s", path), err)
	}
	formatter.VerboseLog("Validating %s (%d bytes)", path, len(data))

	cfg, err := config.Parse(path, data)
	if err != nil {
		issues := configIssues(err)
		if outErr := formatter.Error(ErrCodeConfig, fmt.Sprintf("%s is invalid", path), issues); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	cfg.Source = path

	budget, _ := cfg.DiskBudget()
	return formatter.Success(ValidationResult{
		Valid:      true,
		Source:     path,
		DiskBudget: budget,
		Config:     cfg,
	})
}

// configIssues splits a config error into positioned issues where the
// schema reported positions.
func configIssues(err error) []ConfigIssue {
	var issues []ConfigIssue
	var cueErr cueerrors.Error
	if !errors.As(err, &cueErr) {
		return []ConfigIssue{{Message: err.Error()}}
	}
	for _, e := range cueerrors.Errors(err) {
		issue := ConfigIssue{Message: e.Error()}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			issue.Line = positions[0].Line()
		}
		issues = append(issues, issue)
	}
	return issues
}

// RenderText implements TextRenderer.
func (r ValidationResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s is valid\n\n", r.Source)
	data, err := r.Config.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
