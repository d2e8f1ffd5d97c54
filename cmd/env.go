package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/insight"
	"github.com/Fraztahir/adsellix-audit/internal/monitoring"
	"github.com/Fraztahir/adsellix-audit/internal/pipeline"
	"github.com/Fraztahir/adsellix-audit/internal/store"
)

// auditEnv holds the loaded model, manual inputs and collaborators needed
// by the audit and serve commands.
type auditEnv struct {
	Model    config.ModelConfig
	Manual   *config.ManualInputs
	Store    store.Store // nil unless runs are persisted
	Metrics  *monitoring.Metrics
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *auditEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// envOptions selects what initAudit wires.
type envOptions struct {
	ModelPath  string
	ManualPath string
	Persist    bool
	Metrics    bool

	// Explain attaches offline explanations when the Anthropic summarizer
	// is disabled.
	Explain bool
}

// initAudit loads the model and manual inputs, opens the store when runs
// are persisted, and builds the pipeline. Callers should defer env.Close().
func initAudit(ctx context.Context, opts envOptions) (*auditEnv, error) {
	modelPath := opts.ModelPath
	if modelPath == "" {
		modelPath = cfg.Pipeline.ModelPath
	}
	m, err := config.LoadModel(modelPath)
	if err != nil {
		return nil, err
	}

	manualPath := opts.ManualPath
	if manualPath == "" {
		manualPath = cfg.Pipeline.ManualPath
	}
	manual, err := config.LoadManualInputs(manualPath)
	if err != nil {
		return nil, err
	}

	env := &auditEnv{Model: m, Manual: manual}
	var popts []pipeline.Option

	if opts.Persist {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, eris.Wrap(err, "open store")
		}
		env.Store = st
		popts = append(popts, pipeline.WithStore(st))
	}

	if opts.Metrics {
		env.Metrics = monitoring.NewMetrics()
		popts = append(popts, pipeline.WithMetrics(env.Metrics))
	}

	if cfg.Insight.Enabled {
		popts = append(popts, pipeline.WithSummarizer(insight.NewAnthropic(cfg.Anthropic, cfg.Insight)))
		zap.L().Info("insight summaries enabled", zap.String("model", cfg.Anthropic.Model))
	} else if opts.Explain {
		popts = append(popts, pipeline.WithSummarizer(insight.Stub{}))
	}

	env.Pipeline = pipeline.New(pipeline.OptionsFrom(cfg), popts...)
	return env, nil
}
