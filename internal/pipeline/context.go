package pipeline

import (
	"time"

	"github.com/Fraztahir/adsellix-audit/internal/config"
	"github.com/Fraztahir/adsellix-audit/internal/model"
	"github.com/Fraztahir/adsellix-audit/internal/tabular"
)

// Report is one parsed report table with its declared type and period.
type Report struct {
	Type   model.ReportType
	Table  *tabular.Table
	Period model.Period
}

// RunContext is everything one audit run reads. It is built by the caller,
// passed by value through every stage and dropped when the run ends; no
// stage writes to it.
type RunContext struct {
	AsOf    time.Time
	Reports []Report
	Model   config.ModelConfig
	Manual  *config.ManualInputs
}

// AsOfString formats the as-of date, or "" when it is derived from the data.
func (rc RunContext) AsOfString() string {
	if rc.AsOf.IsZero() {
		return ""
	}
	return model.Day(rc.AsOf).Format("2006-01-02")
}
