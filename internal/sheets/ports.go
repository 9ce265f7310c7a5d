package sheets

import (
	"context"

	"paycheck/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportExporter publishes a budget report to an external sheet. Each
	// export replaces whatever the previous one wrote.
	ReportExporter interface {
		ExportReport(ctx context.Context, r core.Report) error
	}
)
