package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Snapshot holds a point-in-time view of persisted run health.
type Snapshot struct {
	Total       int                     `json:"total"`
	ByStatus    map[model.RunStatus]int `json:"by_status"`
	FailRate    float64                 `json:"fail_rate"`
	CollectedAt time.Time               `json:"collected_at"`
}

// RunCounter is the store capability the collector needs.
type RunCounter interface {
	CountRuns(ctx context.Context) (map[model.RunStatus]int, error)
}

// Collector gathers run counts from the store.
type Collector struct {
	store RunCounter
}

// NewCollector creates a new collector.
func NewCollector(st RunCounter) *Collector {
	return &Collector{store: st}
}

// Collect builds a snapshot. FailRate is failed over finished runs
// (complete, partial and failed); running runs are excluded.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	counts, err := c.store.CountRuns(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count runs")
	}

	snap := &Snapshot{ByStatus: counts, CollectedAt: time.Now().UTC()}
	for _, n := range counts {
		snap.Total += n
	}
	finished := counts[model.RunStatusComplete] + counts[model.RunStatusPartial] + counts[model.RunStatusFailed]
	if finished > 0 {
		snap.FailRate = float64(counts[model.RunStatusFailed]) / float64(finished)
	}
	return snap, nil
}
