package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Fraztahir/adsellix-audit/internal/config"
)

var validateDump bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a model file and print its scoring factors",
	Long:  "Validates the model named by --model (or pipeline.model_path), falling back to the built-in model.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := config.LoadModel(cfg.Pipeline.ModelPath)
		if err != nil {
			return err
		}
		if validateDump {
			out, err := config.MarshalModel(m)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(out)
			return err
		}
		formatModel(os.Stdout, m)
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "print the effective model as YAML")
	rootCmd.AddCommand(validateCmd)
}

// formatModel writes each scoring model's factor table and the decision
// thresholds.
func formatModel(out io.Writer, m config.ModelConfig) {
	for _, sm := range []config.ScoringModel{m.KeepKill, m.BrandHealth, m.QueryEfficiency} {
		_, _ = fmt.Fprintf(out, "%s (fallback band %d)\n", sm.Name, sm.FallbackBand)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "FACTOR\tMETRIC\tWEIGHT\tBANDS")
		for _, f := range sm.Factors {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", f.Name, f.Metric, f.Weight, formatBands(f))
		}
		_ = w.Flush()
		_, _ = fmt.Fprintln(out)
	}
	_, _ = fmt.Fprintf(out, "Decisions: invest >= %.2f, maintain >= %.2f, optimize >= %.2f, else exit\n",
		m.Decision.Invest, m.Decision.Maintain, m.Decision.Optimize)
	_, _ = fmt.Fprintf(out, "Query rules: %s\n", strings.Join(m.QueryRules.Order, " > "))
}

func formatBands(f config.Factor) string {
	parts := make([]string, 0, len(f.Bands)+1)
	for _, b := range f.Bands {
		parts = append(parts, fmt.Sprintf(">=%g:%d", b.Min, b.Band))
	}
	parts = append(parts, fmt.Sprintf("else:%d", f.Floor))
	return strings.Join(parts, " ")
}
