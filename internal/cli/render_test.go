package cli

import (
	"strings"
	"testing"

	"paycheck/internal/core"

	"github.com/shopspring/decimal"
)

func TestRenderReport(t *testing.T) {
	b := core.NewBudget()
	first := b.Account(core.FirstPeriod)
	first.SetSalary(decimal.NewFromInt(20000))
	first.Bills.Append("Rent", decimal.NewFromInt(7500))
	b.Account(core.SecondPeriod).SetSalary(decimal.NewFromInt(1000))
	b.Account(core.SecondPeriod).Bills.Append("Loan", decimal.NewFromInt(1500))
	b.Goal.SetTarget("Emergency fund", decimal.NewFromInt(50000))
	b.Contribute(core.Contributions{core.FirstPeriod: decimal.NewFromInt(2500)})

	out := RenderReport(core.BuildReport(b))

	for _, want := range []string{
		"PAYCHECK SUMMARY",
		"15th", "30th",
		"₱20,000.00",
		"Rent", "₱7,500.00",
		"Loan",
		"₱-700.00", // 1000 - 1500 - 200
		"Emergency fund", "₱47,500.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderReport_Empty(t *testing.T) {
	out := RenderReport(core.BuildReport(core.NewBudget()))

	if !strings.Contains(out, "no bills") || !strings.Contains(out, "no goal set") {
		t.Errorf("empty report missing placeholders:\n%s", out)
	}
}
