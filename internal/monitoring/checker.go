package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Checker periodically refreshes run gauges and warns when the failure
// rate crosses the configured threshold.
type Checker struct {
	collector *Collector
	metrics   *Metrics
	cfg       config.MonitoringConfig
}

// NewChecker creates a background checker.
func NewChecker(collector *Collector, metrics *Metrics, cfg config.MonitoringConfig) *Checker {
	return &Checker{collector: collector, metrics: metrics, cfg: cfg}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting run checker", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("run checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check collects one snapshot and publishes it.
func (c *Checker) Check(ctx context.Context) *Snapshot {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		zap.L().Error("monitoring: failed to collect run counts", zap.Error(err))
		return nil
	}

	if c.metrics != nil {
		for _, s := range []model.RunStatus{
			model.RunStatusRunning, model.RunStatusComplete, model.RunStatusPartial, model.RunStatusFailed,
		} {
			c.metrics.RunsByStatus.WithLabelValues(string(s)).Set(float64(snap.ByStatus[s]))
		}
	}

	if c.cfg.FailureRateThreshold > 0 && snap.FailRate > c.cfg.FailureRateThreshold {
		zap.L().Warn("monitoring: run failure rate above threshold",
			zap.Float64("fail_rate", snap.FailRate),
			zap.Float64("threshold", c.cfg.FailureRateThreshold),
			zap.Int("failed", snap.ByStatus[model.RunStatusFailed]),
		)
	}
	return snap
}
