package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/marrow/internal/pipeline"
	"github.com/roach88/marrow/internal/schema"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database string
}

// ApplyReport is the serializable outcome of an applied changeset.
type ApplyReport struct {
	Save      string             `json:"save"`
	Inserted  int                `json:"inserted"`
	Updated   int                `json:"updated"`
	Deleted   int                `json:"deleted"`
	Generated []GeneratedKeyInfo `json:"generated,omitempty"`
}

// GeneratedKeyInfo is one store-assigned key captured during the save.
type GeneratedKeyInfo struct {
	Table string `json:"table"`
	Key   int64  `json:"key"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <schema-dir> <changeset.yaml>",
		Short: "Apply a changeset to a SQLite database",
		Long: `Plan a changeset and execute it against SQLite in one transaction.
Tables are created from the model if they don't exist. On failure the
batch is rolled back and provisional generated values are discarded.

Example:
  marrow apply --db ./marrow.db ./schema ./changeset.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runApply(opts *ApplyOptions, schemaDir, changesetPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	result, loadErrors := schema.LoadModel(schemaDir, schema.LoadModeFailFast)
	if len(loadErrors) > 0 {
		formatter.Error(schema.ErrCodeGeneric, loadErrors[0].Error())
		return &ExitError{Code: ExitCommandError, Message: loadErrors[0].Error()}
	}
	batch, err := LoadChangeset(changesetPath, result.Model)
	if err != nil {
		formatter.Error(schema.ErrCodeGeneric, err.Error())
		return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
	}

	db, err := pipeline.Open(opts.Database)
	if err != nil {
		formatter.Error(schema.ErrCodeGeneric, err.Error())
		return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
	}
	defer db.Close()

	saver, err := pipeline.NewSaver(result.Model, db, logger)
	if err != nil {
		formatter.Error(schema.ErrCodeGeneric, err.Error())
		return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
	}
	ctx := cmd.Context()
	if err := saver.EnsureTables(ctx); err != nil {
		formatter.Error(schema.ErrCodeGeneric, err.Error())
		return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
	}

	saveResult, err := saver.Save(ctx, batch)
	if err != nil {
		code := schema.ErrCodeGeneric
		var se *pipeline.SaveError
		if errors.As(err, &se) {
			code = string(se.Code)
		}
		formatter.Error(code, err.Error())
		return &ExitError{Code: ExitFailure, Message: "apply failed, batch rolled back", Err: err}
	}

	report := ApplyReport{
		Save:     saveResult.Token,
		Inserted: saveResult.Inserted,
		Updated:  saveResult.Updated,
		Deleted:  saveResult.Deleted,
	}
	for _, g := range saveResult.Generated {
		report.Generated = append(report.Generated, GeneratedKeyInfo{Table: g.Table, Key: g.Key})
	}
	return formatter.Success(report, renderApplyText(report))
}

func renderApplyText(report ApplyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "applied: inserted=%d updated=%d deleted=%d\n", report.Inserted, report.Updated, report.Deleted)
	for _, g := range report.Generated {
		fmt.Fprintf(&b, "generated: table=%s key=%d\n", g.Table, g.Key)
	}
	return b.String()
}
