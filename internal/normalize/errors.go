package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Fraztahir/adsellix-audit/internal/model"
)

// SchemaError is returned when a report lacks required columns. It is
// fatal for that report only.
type SchemaError struct {
	Report  model.ReportType
	Table   string
	Missing []string
	// Renamed maps an expected column to a header that looks like a
	// renamed version of it.
	Renamed map[string]string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "normalize: %s report %q missing required columns: %s",
		e.Report, e.Table, strings.Join(e.Missing, ", "))
	if len(e.Renamed) > 0 {
		keys := make([]string, 0, len(e.Renamed))
		for k := range e.Renamed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		hints := make([]string, len(keys))
		for i, k := range keys {
			hints[i] = fmt.Sprintf("%q looks like %q", e.Renamed[k], k)
		}
		fmt.Fprintf(&b, " (possibly renamed: %s)", strings.Join(hints, "; "))
	}
	return b.String()
}

// DataQualityError is returned when too many rows fail coercion.
type DataQualityError struct {
	Report    model.ReportType
	Table     string
	Rows      int
	Dropped   int
	Threshold float64
	Samples   []string
}

// DropRate returns the share of rows dropped.
func (e *DataQualityError) DropRate() float64 {
	if e.Rows == 0 {
		return 0
	}
	return float64(e.Dropped) / float64(e.Rows)
}

func (e *DataQualityError) Error() string {
	msg := fmt.Sprintf("normalize: %s report %q dropped %d of %d rows (%.1f%%, limit %.1f%%)",
		e.Report, e.Table, e.Dropped, e.Rows, e.DropRate()*100, e.Threshold*100)
	if len(e.Samples) > 0 {
		msg += ": " + strings.Join(e.Samples, "; ")
	}
	return msg
}
