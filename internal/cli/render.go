package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"paycheck/internal/core"
)

var (
	ColorBorder    = lipgloss.Color("#403E3C")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorTextMuted = lipgloss.Color("#878580")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	positiveStyle = lipgloss.NewStyle().Foreground(ColorGreen)
	negativeStyle = lipgloss.NewStyle().Foreground(ColorRed)
)

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(titleStyle.Render(title))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func money(d decimal.Decimal) string {
	s := core.FormatPeso(d)
	if d.IsNegative() {
		return negativeStyle.Render(s)
	}
	return s
}

// RenderReport renders the cutoff summary, the bills of each cutoff and the
// savings goal.
func RenderReport(r core.Report) string {
	var b strings.Builder

	b.WriteString(RenderTitle("PAYCHECK SUMMARY"))
	b.WriteString("\n\n")

	summary := newTable("Cutoff", "Salary", "Bills", "Future fund", "Saved", "Flex money")
	for _, a := range r.Accounts {
		summary.Row(
			a.Period.String(),
			money(a.Salary),
			money(a.TotalBills),
			money(a.FutureFund),
			money(a.ManualContrib),
			money(a.FlexMoney),
		)
	}
	summary.Row("Total", "", "", money(r.TotalFuture), "", money(r.TotalFlex))
	b.WriteString(summary.Render())
	b.WriteString("\n")

	for _, a := range r.Accounts {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("Bills %s", a.Period)))
		b.WriteString("\n")
		if len(a.Bills) == 0 {
			b.WriteString(mutedStyle.Render("  no bills"))
			b.WriteString("\n")
			continue
		}
		bills := newTable("#", "Name", "Amount")
		for i, bill := range a.Bills {
			bills.Row(strconv.Itoa(i), bill.Name, money(bill.Amount))
		}
		b.WriteString(bills.Render())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Savings goal"))
	b.WriteString("\n")
	if !r.Goal.Active {
		b.WriteString(mutedStyle.Render("  no goal set"))
		b.WriteString("\n")
		return b.String()
	}
	goal := newTable("Goal", "Target", "Covered", "Remaining")
	goal.Row(r.Goal.Name, money(r.Goal.Amount), positiveStyle.Render(core.FormatPeso(r.Goal.Covered)), money(r.Goal.Remaining))
	b.WriteString(goal.Render())
	b.WriteString("\n")
	return b.String()
}
