package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/marrow/internal/pipeline"
	"github.com/roach88/marrow/internal/rowkey"
	"github.com/roach88/marrow/internal/schema"
)

// PlanReport is the serializable form of a resolved batch plan.
type PlanReport struct {
	Rows []PlanRowReport `json:"rows"`
}

// PlanRowReport is one row's resolved identity in both temporal modes.
type PlanRowReport struct {
	Index       int    `json:"index"`
	Table       string `json:"table"`
	Op          string `json:"op"`
	CurrentKey  string `json:"current_key"`
	OriginalKey string `json:"original_key"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <schema-dir> <changeset.yaml>",
		Short: "Resolve row identities for a changeset without writing",
		Long: `Load a CUE model and a YAML changeset, group the pending writes into
rows, and print each row's resolved key tuple in current and original
temporal modes. No database is involved.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runPlan(opts *RootOptions, schemaDir, changesetPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	batch, planner, err := loadBatch(schemaDir, changesetPath)
	if err != nil {
		formatter.Error(schema.ErrCodeGeneric, err.Error())
		return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
	}

	plan, err := planner.Plan(batch)
	if err != nil {
		var se *pipeline.SaveError
		if errors.As(err, &se) {
			formatter.Error(string(se.Code), se.Message)
		} else {
			formatter.Error(schema.ErrCodeGeneric, err.Error())
		}
		return &ExitError{Code: ExitFailure, Message: "plan failed", Err: err}
	}

	report := buildPlanReport(plan)
	return formatter.Success(report, renderPlanText(report))
}

func loadBatch(schemaDir, changesetPath string) (*pipeline.Batch, *pipeline.Planner, error) {
	result, loadErrors := schema.LoadModel(schemaDir, schema.LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, nil, loadErrors[0]
	}
	planner, err := pipeline.NewPlanner(result.Model)
	if err != nil {
		return nil, nil, err
	}
	batch, err := LoadChangeset(changesetPath, result.Model)
	if err != nil {
		return nil, nil, err
	}
	return batch, planner, nil
}

func buildPlanReport(plan *pipeline.Plan) PlanReport {
	report := PlanReport{Rows: make([]PlanRowReport, 0, len(plan.Rows))}
	for i, rp := range plan.Rows {
		report.Rows = append(report.Rows, PlanRowReport{
			Index:       i + 1,
			Table:       rp.Row.Record().Table().Name,
			Op:          rp.Op.String(),
			CurrentKey:  formatKey(rp.CurrentKey, rp.CurrentComplete),
			OriginalKey: formatKey(rp.OriginalKey, rp.OriginalComplete),
		})
	}
	return report
}

func renderPlanText(report PlanReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "plan: %d row(s)\n", len(report.Rows))
	for _, row := range report.Rows {
		fmt.Fprintf(&b, "row %d: table=%s op=%s current=%s original=%s\n",
			row.Index, row.Table, row.Op, row.CurrentKey, row.OriginalKey)
	}
	return b.String()
}

// formatKey renders a resolved tuple: "<none>" when resolution failed,
// "<incomplete>" when a position is null, the positional values otherwise.
func formatKey(key rowkey.KeyTuple, complete bool) string {
	if key == nil && !complete {
		return "<none>"
	}
	if !complete {
		return "<incomplete>"
	}
	return fmt.Sprintf("%v", key)
}
