package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"decisionkit/core/mep"
)

type solveOptions struct {
	format    string
	precision int32
	workers   int
}

func newSolveCommand(a *app) *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve <mep-config>...",
		Short: "Estimate a joint distribution under maximum entropy",
		Long: `Estimate the joint distribution of the configured cells that maximizes
entropy subject to the assessments, equality and inequality constraints.

The configuration is JSON or YAML with the keys joint_distributions,
assessments, equality, inequality, conditioned_variables and minimization.
Several configurations are solved in parallel.

Examples:
  decisionkit solve assessments.yaml
  decisionkit solve --format json --precision 4 assessments.json
  decisionkit solve --workers 8 scenarios/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSolve(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format (table, json); defaults to the configured format")
	cmd.Flags().Int32VarP(&opts.precision, "precision", "p", -1, "decimal places; defaults to the configured precision")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "configurations solved in parallel")
	return cmd
}

func (a *app) runSolve(cmd *cobra.Command, paths []string, opts *solveOptions) error {
	format := opts.format
	if format == "" {
		format = a.cfg.Output.DefaultFormat
	}
	if format != "json" && format != "table" {
		return fmt.Errorf("unknown output format %q (want table or json)", format)
	}
	precision := opts.precision
	if precision < 0 {
		precision = a.cfg.Output.Precision
	}

	jobs := make([]mep.Job, len(paths))
	for i, path := range paths {
		mepCfg, err := mep.LoadConfig(path)
		if err != nil {
			return err
		}
		jobs[i] = mep.Job{Name: path, Config: mepCfg}
	}

	sc := a.cfg.Solver
	solver := mep.NewSolver(
		mep.WithLogger(a.logger.Named("mep")),
		mep.WithMaxOuterIterations(sc.MaxOuterIterations),
		mep.WithMaxInnerIterations(sc.MaxInnerIterations),
		mep.WithTolerance(sc.Tolerance),
		mep.WithFeasibilityTolerance(sc.FeasibilityTolerance),
		mep.WithInitialPenalty(sc.InitialPenalty),
	)
	outcomes, err := mep.NewBatchSolver(solver, opts.workers).SolveAll(cmd.Context(), jobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			if len(outcomes) == 1 {
				return o.Err
			}
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", o.Name, o.Err)
			continue
		}
		if !o.Result.Success {
			a.logger.Warn("solver did not converge",
				zap.String("config", o.Name),
				zap.String("status", o.Result.Message),
				zap.Float64("max_violation", o.Result.MaxViolation))
		}

		if format == "json" {
			if err := writeSolveJSON(out, o.Name, o.Result, precision); err != nil {
				return err
			}
			continue
		}
		if len(outcomes) > 1 {
			fmt.Fprintf(out, "\n%s\n", o.Name)
		}
		writeSolveTable(out, o.Result, precision)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d configurations failed", failed, len(outcomes))
	}
	return nil
}

type solveOutput struct {
	Config          string                     `json:"config"`
	Success         bool                       `json:"success"`
	Status          string                     `json:"status"`
	OuterIterations int                        `json:"outer_iterations"`
	InnerIterations int                        `json:"inner_iterations"`
	Entropy         decimal.Decimal            `json:"entropy"`
	MaxViolation    float64                    `json:"max_violation"`
	Probabilities   map[string]decimal.Decimal `json:"probabilities"`
	Conditional     map[string]decimal.Decimal `json:"conditional,omitempty"`
}

func writeSolveJSON(w io.Writer, name string, res *mep.Result, precision int32) error {
	out := solveOutput{
		Config:          name,
		Success:         res.Success,
		Status:          res.Message,
		OuterIterations: res.OuterIterations,
		InnerIterations: res.InnerIterations,
		Entropy:         decimal.NewFromFloat(res.Entropy).Round(precision),
		MaxViolation:    res.MaxViolation,
		Probabilities:   res.Rounded(precision),
	}
	if cond := res.ConditionalProbabilities(); cond != nil {
		out.Conditional = make(map[string]decimal.Decimal, len(cond))
		for code, v := range cond {
			out.Conditional[code] = decimal.NewFromFloat(v).Round(precision)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSolveTable(w io.Writer, res *mep.Result, precision int32) {
	rounded := res.Rounded(precision)
	cond := res.ConditionalProbabilities()

	header := fmt.Sprintf("%-12s %16s", "CELL", "PROBABILITY")
	if cond != nil {
		header += fmt.Sprintf(" %16s", "CONDITIONAL")
	}
	rule := strings.Repeat("─", len([]rune(header)))

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, rule)
	for _, code := range res.Codes {
		line := fmt.Sprintf("%-12s %16s", code, rounded[code].StringFixed(precision))
		if cond != nil {
			line += fmt.Sprintf(" %16s", decimal.NewFromFloat(cond[code]).StringFixed(precision))
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Status:     %s\n", res.Message)
	fmt.Fprintf(w, "Entropy:    %s\n", decimal.NewFromFloat(res.Entropy).StringFixed(precision))
	fmt.Fprintf(w, "Violation:  %.3g\n", res.MaxViolation)
	fmt.Fprintf(w, "Iterations: %d outer, %d inner\n", res.OuterIterations, res.InnerIterations)
}
