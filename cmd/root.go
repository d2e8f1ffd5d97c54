package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/config"
)

var cfg *config.Config

// globalFlags are accepted by every command and win over the config file
// and environment when set.
type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
	modelPath  string
	manualPath string
}

var rootFlags globalFlags

var rootCmd = &cobra.Command{
	Use:   "adsellix-audit",
	Short: "Marketplace seller audit scoring engine",
	Long:  "Normalizes and joins seller reports, scores every ASIN and search query, and ranks the resulting actions by expected impact.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFrom(rootFlags.configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		rootFlags.apply(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func (g *globalFlags) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.configFile, "config", "", "config file (default: ./config.yaml when present)")
	f.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&g.logFormat, "log-format", "", "log format: json or console")
	f.StringVar(&g.modelPath, "model", "", "model YAML overriding the built-in weights and thresholds")
	f.StringVar(&g.manualPath, "manual", "", "manual inputs YAML (COGS, target margin, brand terms)")
}

// apply copies the flags the user set onto the loaded config. Unset flags
// leave file and environment values alone.
func (g *globalFlags) apply(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("log-level") {
		c.Log.Level = g.logLevel
	}
	if f.Changed("log-format") {
		c.Log.Format = g.logFormat
	}
	if f.Changed("model") {
		c.Pipeline.ModelPath = g.modelPath
	}
	if f.Changed("manual") {
		c.Pipeline.ManualPath = g.manualPath
	}
}

func init() {
	rootFlags.register(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
