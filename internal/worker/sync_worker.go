package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"paycheck/internal/amqp"
	"paycheck/internal/core"
	"paycheck/internal/metrics"
	"paycheck/internal/sheets"
)

// Loader reads the stored budget snapshot.
type Loader interface {
	Load(ctx context.Context) (*core.Budget, error)
}

// SyncWorker mirrors the stored budget into an external sheet. It exports
// on every change notification and on a fixed interval to catch anything
// that was missed while the broker or the sheet was unavailable.
type SyncWorker struct {
	loader   Loader
	exporter sheets.ReportExporter
	metrics  *metrics.Metrics

	mu         sync.Mutex
	lastExport time.Time
}

func NewSyncWorker(loader Loader, exporter sheets.ReportExporter, m *metrics.Metrics) *SyncWorker {
	return &SyncWorker{
		loader:   loader,
		exporter: exporter,
		metrics:  m,
	}
}

// HandleBudgetChanged processes one change notification from AMQP. A
// returned error makes the consumer requeue the message.
func (w *SyncWorker) HandleBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error {
	slog.InfoContext(ctx, "Processing budget change",
		"component", "worker",
		"id", msg.ID,
		"operation", msg.Operation,
		"cutoff", msg.Period)

	// Messages queued before the last export carry nothing new.
	if last := w.LastExport(); !last.IsZero() && msg.Timestamp.Before(last) {
		slog.DebugContext(ctx, "Skipping stale budget change", "component", "worker", "id", msg.ID)
		return nil
	}

	if err := w.Export(ctx); err != nil {
		return fmt.Errorf("export after %s: %w", msg.Operation, err)
	}
	return nil
}

// Export loads the current snapshot and writes its report. Exports are
// serialized so two writers never interleave Clear and Update calls.
func (w *SyncWorker) Export(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := time.Now()
	err := w.export(ctx)
	w.metrics.ObserveExport(err)
	if err != nil {
		return err
	}

	w.lastExport = started
	slog.InfoContext(ctx, "Budget exported",
		"component", "worker",
		"duration_ms", time.Since(started).Milliseconds())
	return nil
}

func (w *SyncWorker) export(ctx context.Context) error {
	b, err := w.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load budget: %w", err)
	}
	if err := w.exporter.ExportReport(ctx, core.BuildReport(b)); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return nil
}

// LastExport returns when the last successful export started.
func (w *SyncWorker) LastExport() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastExport
}

// RunPeriodic exports every interval until ctx is done. Failures are
// logged and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Export(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "component", "worker", "error", err)
			}
		}
	}
}
