package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/monitoring"
	"github.com/Fraztahir/adsellix-audit/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the audit API",
	Long:  "Starts the HTTP API: audit uploads, run history, the active model, health and Prometheus metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initAudit(ctx, envOptions{Persist: true, Metrics: true})
		if err != nil {
			return err
		}
		defer env.Close()

		checker := monitoring.NewChecker(monitoring.NewCollector(env.Store), env.Metrics, cfg.Monitoring)
		go checker.Run(ctx)

		srv := server.New(server.Deps{
			Runner:         env.Pipeline,
			Store:          env.Store,
			Metrics:        env.Metrics,
			Model:          env.Model,
			Manual:         env.Manual,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		zap.L().Info("starting audit server",
			zap.Int("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.Int("workers", cfg.Pipeline.Workers),
		)
		return srv.ListenAndServe(ctx, cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
