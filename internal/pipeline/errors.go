package pipeline

import (
	"errors"
	"fmt"

	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// Stage names used for timing, logging and partial-result errors.
const (
	StageNormalize = "normalize"
	StageJoin      = "join"
	StageReduce    = "reduce"
	StageItems     = "items"
	StageQueries   = "queries"
	StagePortfolio = "portfolio"
	StageRecommend = "recommend"
	StageInsight   = "insight"
)

// PartialResultsError is returned when the run timeout fires. The result
// returned alongside it holds every stage and subject that completed.
type PartialResultsError struct {
	Stage     string
	Completed int
	Total     int
	Err       error
}

func (e *PartialResultsError) Error() string {
	return fmt.Sprintf("pipeline: run aborted during %s after %d of %d: %v", e.Stage, e.Completed, e.Total, e.Err)
}

func (e *PartialResultsError) Unwrap() error { return e.Err }

// Status maps a run outcome to its persisted status. A run whose reports
// partly failed to normalize is partial even though it returned no error.
func Status(res *model.Result, err error) model.RunStatus {
	var pe *PartialResultsError
	switch {
	case errors.As(err, &pe):
		return model.RunStatusPartial
	case err != nil:
		return model.RunStatusFailed
	}
	if res != nil {
		for _, w := range res.Warnings {
			if w.Kind == model.WarnReportFailed {
				return model.RunStatusPartial
			}
		}
	}
	return model.RunStatusComplete
}
