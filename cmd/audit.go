package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/pipeline"
	"github.com/Fraztahir/adsellix-audit/internal/tabular"
)

// auditOptions are the audit command's flags. ModelPath and ManualPath
// default to the global --model and --manual settings.
type auditOptions struct {
	Reports    []string
	AsOf       string
	ModelPath  string
	ManualPath string
	Out        string
	Save       bool
	Explain    bool
	Top        int
}

var auditOpts auditOptions

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Score and classify a set of seller reports",
	Long: `Runs the audit pipeline over report files and prints the ranked recommendations.

Each --report is type[:period]=path, where type is one of business, sqp, ppc,
inventory, fees, returns or history, and period is current (default), prior_year,
trailing_12m or an inclusive YYYY-MM-DD..YYYY-MM-DD range.`,
	Example: `  adsellix-audit audit \
    -r business=business_q3.csv -r business:prior_year=business_q3_2024.csv \
    -r sqp=sqp.csv -r ppc=search_terms.xlsx -r inventory=fba_inventory.txt \
    -r fees=fee_preview.txt -r returns=returns.tsv -r history=monthly_sales.csv \
    --manual manual.yaml --as-of 2025-09-30 --out result.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAudit(cmd.Context(), auditOpts, os.Stdout)
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringArrayVarP(&auditOpts.Reports, "report", "r", nil, "report file as type[:period]=path (repeatable)")
	f.StringVar(&auditOpts.AsOf, "as-of", "", "end date of the current window, YYYY-MM-DD (default: latest report date)")
	f.StringVarP(&auditOpts.Out, "out", "o", "", "write the result bundle as JSON to this path (- for stdout)")
	f.BoolVar(&auditOpts.Save, "save", false, "record the run in the configured store")
	f.BoolVar(&auditOpts.Explain, "explain", false, "attach offline explanations when insight summaries are disabled")
	f.IntVar(&auditOpts.Top, "top", 20, "recommendations to print")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(ctx context.Context, opts auditOptions, out io.Writer) error {
	if err := cfg.Validate("audit"); err != nil {
		return err
	}
	if len(opts.Reports) == 0 {
		return eris.New("at least one --report is required")
	}

	specs := make([]pipeline.ReportSpec, 0, len(opts.Reports))
	for _, r := range opts.Reports {
		spec, err := pipeline.ParseReportSpec(r)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}

	var asOf time.Time
	if opts.AsOf != "" {
		t, err := time.Parse("2006-01-02", opts.AsOf)
		if err != nil {
			return eris.Wrapf(err, "invalid --as-of %q", opts.AsOf)
		}
		asOf = t
	}

	env, err := initAudit(ctx, envOptions{
		ModelPath:  opts.ModelPath,
		ManualPath: opts.ManualPath,
		Persist:    opts.Save,
		Explain:    opts.Explain,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	reports, err := pipeline.LoadReports(ctx, specs, tabular.Options{})
	if err != nil {
		return err
	}

	run, runErr := env.Pipeline.Execute(ctx, pipeline.RunContext{
		AsOf:    asOf,
		Reports: reports,
		Model:   env.Model,
		Manual:  env.Manual,
	})
	if run == nil || run.Result == nil {
		return runErr
	}

	if opts.Out != "" {
		if err := writeResult(opts.Out, out, run.Result); err != nil {
			return err
		}
	}
	if opts.Out != "-" {
		formatSummary(out, run, opts.Top)
		if run.ID != "" {
			_, _ = fmt.Fprintf(out, "\nSaved run %s\n", run.ID)
		}
	}
	return runErr
}

func writeResult(path string, stdout io.Writer, res *model.Result) error {
	w := stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return eris.Wrap(err, "encode result")
	}
	return nil
}

// formatSummary writes the run header, roll-ups, the top recommendations
// and any warnings.
func formatSummary(out io.Writer, run *model.Run, top int) {
	res := run.Result
	_, _ = fmt.Fprintf(out, "As of:   %s\n", orDash(res.AsOf))
	_, _ = fmt.Fprintf(out, "Status:  %s\n", run.Status)
	if res.Portfolio != nil {
		_, _ = fmt.Fprintf(out, "Brand health: %s (%.1f)\n", orDash(res.Portfolio.Grade), res.Portfolio.Score.Score)
	}
	_, _ = fmt.Fprintf(out, "Wasted spend: %s\n", formatValue(res.Summary.WastedSpend))
	_, _ = fmt.Fprintf(out, "Decisions:  %s\n", formatCounts(res.Summary.Decisions))
	_, _ = fmt.Fprintf(out, "Strategies: %s\n", formatCounts(res.Summary.Strategies))
	if a := res.Summary.Advertising; a != nil {
		_, _ = fmt.Fprintf(out, "Advertising: spend %s, sales %s, ACoS %s over %d queries\n",
			formatValue(a.Spend), formatValue(a.Sales), formatValue(a.ACoS), a.Queries)
	}
	if len(res.Families) > 0 {
		_, _ = fmt.Fprintf(out, "Families:   %d parents, %d heroes\n", len(res.Families), heroCount(res.Families))
	}
	if res.Summary.ExecutiveSummary != "" {
		_, _ = fmt.Fprintf(out, "\n%s\n", res.Summary.ExecutiveSummary)
	}

	recs := res.Recommendations
	if top > 0 && top < len(recs) {
		recs = recs[:top]
	}
	if len(recs) > 0 {
		_, _ = fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "RANK\tLEVEL\tSUBJECT\tACTION\tEFFORT\tIMPACT\tREASON")
		for _, r := range recs {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Rank, r.Level, truncate(r.Subject, 40), r.Action, r.Effort, formatValue(r.Impact), r.Rationale.Reason)
		}
		_ = w.Flush()
		if len(recs) < len(res.Recommendations) {
			_, _ = fmt.Fprintf(out, "... %d more\n", len(res.Recommendations)-len(recs))
		}
	}

	if len(res.Warnings) > 0 {
		_, _ = fmt.Fprintf(out, "\nWarnings (%d):\n", len(res.Warnings))
		for _, wn := range res.Warnings {
			subject := ""
			if wn.Subject != "" {
				subject = " " + wn.Subject
			}
			_, _ = fmt.Fprintf(out, "  [%s] %s%s: %s\n", wn.Kind, wn.Module, subject, wn.Reason)
		}
	}
}

func heroCount(fams []model.Family) int {
	n := 0
	for _, f := range fams {
		n += len(f.Heroes)
	}
	return n
}

func formatCounts[K ~string](m map[K]int) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%d", k, m[K(k)])
	}
	return s
}

func formatValue(v model.Value) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
