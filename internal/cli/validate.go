package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/marrow/internal/schema"
)

// ValidationReport holds schema validation results.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Tables []string `json:"tables,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate a CUE model without touching a database",
		Long: `Validate the CUE relational model: tables, key columns, comparer kinds,
and entity-type property mappings. Collects every defect before reporting.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, loadErrors := schema.LoadModel(schemaDir, schema.LoadModeCollectAll)
	if result == nil && len(loadErrors) > 0 {
		code := schema.ErrCodeGeneric
		var loadErr *schema.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			code = loadErr.Code
		}
		formatter.Error(code, loadErrors[0].Error())
		return &ExitError{Code: ExitCommandError, Message: loadErrors[0].Error()}
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, schemaDir)

	report := ValidationReport{Valid: len(loadErrors) == 0}
	for _, t := range result.Tables {
		report.Tables = append(report.Tables, t.Name)
	}
	for _, err := range loadErrors {
		report.Errors = append(report.Errors, err.Error())
	}

	if !report.Valid {
		var b strings.Builder
		fmt.Fprintf(&b, "invalid: %d error(s)\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
		if opts.Format == "json" {
			formatter.Success(report, "")
		} else {
			fmt.Fprint(formatter.Writer, b.String())
		}
		return &ExitError{Code: ExitFailure, Message: "schema validation failed"}
	}

	text := fmt.Sprintf("valid: %d table(s)\n", len(report.Tables))
	return formatter.Success(report, text)
}
