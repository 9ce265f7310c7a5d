package google

import (
	"strings"
	"time"

	"paycheck/internal/core"

	"github.com/shopspring/decimal"
)

var (
	summaryHeader = []any{"Cutoff", "Salary", "Total bills", "Future fund", "Flex money", "Manual contribution"}
	billsHeader   = []any{"Cutoff", "#", "Bill", "Amount"}
	goalHeader    = []any{"Savings goal", "Target", "Covered", "Remaining"}
)

// reportRows lays out a report as a values matrix: a summary block per
// cutoff with totals, the bill list, then the savings goal. Amounts are
// written as plain numbers with two decimals so the sheet can format them;
// user supplied names go through text so they are never parsed as formulas.
func reportRows(r core.Report, generatedAt time.Time) [][]any {
	rows := [][]any{
		{"Paycheck budget", "Updated", generatedAt.UTC().Format(time.RFC3339)},
		{},
		summaryHeader,
	}

	for _, a := range r.Accounts {
		rows = append(rows, []any{
			a.Period.String(),
			amount(a.Salary),
			amount(a.TotalBills),
			amount(a.FutureFund),
			amount(a.FlexMoney),
			amount(a.ManualContrib),
		})
	}
	rows = append(rows, []any{"Total", "", "", amount(r.TotalFuture), amount(r.TotalFlex), ""})

	rows = append(rows, []any{}, billsHeader)
	for _, a := range r.Accounts {
		for i, b := range a.Bills {
			rows = append(rows, []any{a.Period.String(), i, text(b.Name), amount(b.Amount)})
		}
	}

	rows = append(rows, []any{}, goalHeader)
	if r.Goal.Active {
		rows = append(rows, []any{
			text(r.Goal.Name),
			amount(r.Goal.Amount),
			amount(r.Goal.Covered),
			amount(r.Goal.Remaining),
		})
	} else {
		rows = append(rows, []any{"(none)"})
	}

	return rows
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// text forces a user supplied name to be stored as a literal string. The
// sheet hides the leading apostrophe.
func text(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
