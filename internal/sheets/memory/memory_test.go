package memory

import (
	"context"
	"errors"
	"testing"

	"paycheck/internal/core"

	"github.com/shopspring/decimal"
)

func TestExporter_KeepsLastReport(t *testing.T) {
	e := New()
	ctx := context.Background()

	b := core.NewBudget()
	b.Account(core.FirstPeriod).SetSalary(decimal.NewFromInt(1000))
	if err := e.ExportReport(ctx, core.BuildReport(b)); err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}
	b.Account(core.FirstPeriod).SetSalary(decimal.NewFromInt(2000))
	if err := e.ExportReport(ctx, core.BuildReport(b)); err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}

	last, n := e.Last()
	if n != 2 {
		t.Errorf("exports = %d, want 2", n)
	}
	if !last.TotalFuture.Equal(decimal.NewFromInt(400)) {
		t.Errorf("TotalFuture = %s, want 400", last.TotalFuture)
	}
}

func TestExporter_FailWith(t *testing.T) {
	e := New()
	boom := errors.New("quota exceeded")
	e.FailWith(boom)

	if err := e.ExportReport(context.Background(), core.Report{}); !errors.Is(err, boom) {
		t.Fatalf("ExportReport() error = %v, want %v", err, boom)
	}
	if _, n := e.Last(); n != 0 {
		t.Errorf("failed export counted")
	}

	e.FailWith(nil)
	if err := e.ExportReport(context.Background(), core.Report{}); err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}
}
