package memory

import (
	"context"
	"sync"

	"paycheck/internal/core"
	ports "paycheck/internal/sheets"
)

// Exporter keeps the last exported report in memory. It stands in for the
// Google exporter when no spreadsheet is configured.
type Exporter struct {
	mu      sync.Mutex
	last    core.Report
	exports int
	err     error
}

var _ ports.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) ExportReport(_ context.Context, r core.Report) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.last = r
	e.exports++
	return nil
}

// FailWith makes every following export return err; nil restores success.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Last returns the most recent report and how many exports succeeded.
func (e *Exporter) Last() (core.Report, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.exports
}
