package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const businessCSV = `(Child) ASIN,Title,Ordered Product Sales,Units Ordered,Sessions - Total
B001,Garlic Press,"$12,000.00",400,8000
B002,Peeler,"$3,000.00",150,6000
`

const ppcCSV = `Customer Search Term,Advertised ASIN,Impressions,Clicks,Spend,7 Day Total Sales,7 Day Total Orders (#)
garlic press,B001,20000,400,$300.00,"$1,500.00",60
cheap gadget,B002,5000,200,$250.00,$0.00,0
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "runs.db"),
		},
		Pipeline: config.PipelineConfig{
			Workers:         2,
			TimeoutSecs:     30,
			MaxDropRate:     0.2,
			ForecastHorizon: 3,
		},
		Insight: config.InsightConfig{MaxRecommendations: 10},
		Server:  config.ServerConfig{Port: 8080},
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestRootCmd_Metadata(t *testing.T) {
	assert.Equal(t, "adsellix-audit", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"audit", "runs", "serve", "validate"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	sub := map[string]bool{}
	for _, c := range runsCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.True(t, sub["list"])
	assert.True(t, sub["show"])
}

func TestAuditCmd_Flags(t *testing.T) {
	for _, name := range []string{"report", "as-of", "out", "save", "explain", "top"} {
		assert.NotNil(t, auditCmd.Flags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "r", auditCmd.Flags().Lookup("report").Shorthand)
	// Model and manual inputs are global.
	assert.Nil(t, auditCmd.LocalNonPersistentFlags().Lookup("model"))
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "log-level", "log-format", "model", "manual"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}
}

func TestGlobalFlags_Apply(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want config.Config
	}{
		{
			name: "unset flags keep loaded values",
			want: config.Config{
				Log:      config.LogConfig{Level: "info", Format: "json"},
				Pipeline: config.PipelineConfig{ModelPath: "file-model.yaml"},
			},
		},
		{
			name: "set flags win",
			args: []string{"--model", "weights.yaml", "--manual", "manual.yaml", "--log-level", "debug"},
			want: config.Config{
				Log:      config.LogConfig{Level: "debug", Format: "json"},
				Pipeline: config.PipelineConfig{ModelPath: "weights.yaml", ManualPath: "manual.yaml"},
			},
		},
		{
			name: "explicit empty model restores the built-in one",
			args: []string{"--model="},
			want: config.Config{Log: config.LogConfig{Level: "info", Format: "json"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g globalFlags
			cmd := &cobra.Command{Use: "test"}
			g.register(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			c := &config.Config{
				Log:      config.LogConfig{Level: "info", Format: "json"},
				Pipeline: config.PipelineConfig{ModelPath: "file-model.yaml"},
			}
			g.apply(cmd, c)
			assert.Equal(t, tt.want, *c)
		})
	}
}

func TestRunAudit_PrintsSummary(t *testing.T) {
	cfg = testConfig(t)
	dir := t.TempDir()

	var out bytes.Buffer
	err := runAudit(context.Background(), auditOptions{
		Reports: []string{
			"business=" + writeFile(t, dir, "business.csv", businessCSV),
			"ppc=" + writeFile(t, dir, "terms.csv", ppcCSV),
		},
		AsOf: "2025-09-30",
		Top:  2,
	}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "As of:   2025-09-30")
	assert.Contains(t, s, "Status:  complete")
	assert.Contains(t, s, "RANK")
	assert.Contains(t, s, "... 2 more")
	assert.NotContains(t, s, "Saved run")
}

func TestRunAudit_WritesJSONAndSaves(t *testing.T) {
	cfg = testConfig(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "result.json")

	var out bytes.Buffer
	err := runAudit(context.Background(), auditOptions{
		Reports: []string{
			"business=" + writeFile(t, dir, "business.csv", businessCSV),
			"ppc:current=" + writeFile(t, dir, "terms.csv", ppcCSV),
		},
		AsOf:    "2025-09-30",
		Out:     outPath,
		Save:    true,
		Explain: true,
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Saved run ")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var res model.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Len(t, res.Items, 2)
	assert.Len(t, res.Queries, 2)
	require.NotEmpty(t, res.Recommendations)
	assert.NotEmpty(t, res.Recommendations[0].Rationale.Insight)

	st, err := store.Open(context.Background(), cfg.Store)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
}

func TestRunAudit_JSONToStdout(t *testing.T) {
	cfg = testConfig(t)
	dir := t.TempDir()

	var out bytes.Buffer
	err := runAudit(context.Background(), auditOptions{
		Reports: []string{"business=" + writeFile(t, dir, "business.csv", businessCSV)},
		AsOf:    "2025-09-30",
		Out:     "-",
	}, &out)
	require.NoError(t, err)

	var res model.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "2025-09-30", res.AsOf)
}

func TestRunAudit_Errors(t *testing.T) {
	dir := t.TempDir()
	business := writeFile(t, dir, "business.csv", businessCSV)
	badModel := writeFile(t, dir, "model.yaml", "decision: {invest: 2, maintain: 3, optimize: 4}\n")

	tests := []struct {
		name string
		opts auditOptions
		want string
	}{
		{"no reports", auditOptions{}, "at least one --report"},
		{"bad report flag", auditOptions{Reports: []string{"business"}}, "must look like type=path"},
		{"unknown type", auditOptions{Reports: []string{"orders=" + business}}, "unknown report type"},
		{"bad as-of", auditOptions{Reports: []string{"business=" + business}, AsOf: "yesterday"}, "invalid --as-of"},
		{"missing file", auditOptions{Reports: []string{"business=" + filepath.Join(dir, "nope.csv")}}, "load business report"},
		{"invalid model", auditOptions{Reports: []string{"business=" + business}, ModelPath: badModel}, "invalid model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg = testConfig(t)
			var out bytes.Buffer
			err := runAudit(context.Background(), tt.opts, &out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunAudit_InvalidConfig(t *testing.T) {
	cfg = testConfig(t)
	cfg.Pipeline.Workers = 0
	err := runAudit(context.Background(), auditOptions{Reports: []string{"business=x.csv"}}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.workers")
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, nil)
	assert.Equal(t, "No runs found.\n", buf.String())

	buf.Reset()
	created := time.Date(2025, 10, 1, 9, 30, 0, 0, time.UTC)
	formatRunsList(&buf, []model.Run{
		{ID: "run-1", AsOf: "2025-09-30", Status: model.RunStatusComplete, CreatedAt: created},
		{ID: "run-2", Status: model.RunStatusFailed, Error: "config: invalid model", CreatedAt: created},
	})
	s := buf.String()
	assert.Contains(t, s, "ID")
	assert.Contains(t, s, "run-1")
	assert.Contains(t, s, "2025-10-01 09:30")
	assert.Contains(t, s, "config: invalid model")
}

func TestFormatSummary_Warnings(t *testing.T) {
	var buf bytes.Buffer
	formatSummary(&buf, &model.Run{
		Status: model.RunStatusPartial,
		Result: &model.Result{
			AsOf: "2025-09-30",
			Summary: model.Summary{
				Decisions: map[model.Decision]int{"invest": 1, "exit": 2},
			},
			Warnings: []model.Warning{
				{Kind: model.WarnReportFailed, Module: "normalize", Subject: "ppc.csv", Reason: "schema: missing column"},
			},
		},
	}, 10)

	s := buf.String()
	assert.Contains(t, s, "Status:  partial")
	assert.Contains(t, s, "Decisions:  exit=2, invest=1")
	assert.Contains(t, s, "Strategies: -")
	assert.Contains(t, s, "Wasted spend: n/a")
	assert.Contains(t, s, "[report_failed] normalize ppc.csv: schema: missing column")
	assert.NotContains(t, s, "RANK")
}

func TestFormatModel(t *testing.T) {
	var buf bytes.Buffer
	formatModel(&buf, config.DefaultModel())
	s := buf.String()
	assert.Contains(t, s, "keep_kill (fallback band")
	assert.Contains(t, s, "brand_health")
	assert.Contains(t, s, "query_efficiency")
	assert.Contains(t, s, "FACTOR")
	assert.Contains(t, s, "Decisions: invest >=")
}

func TestFormatBands(t *testing.T) {
	f := config.Factor{Bands: []config.Threshold{{Min: 0.3, Band: 5}, {Min: 0, Band: 2}}, Floor: 1}
	assert.Equal(t, ">=0.3:5 >=0:2 else:1", formatBands(f))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
