package core

import "github.com/shopspring/decimal"

// AccountSummary is the derived view of one cutoff.
type AccountSummary struct {
	Period        Period          `json:"cutoff"`
	Salary        decimal.Decimal `json:"salary"`
	Bills         []Bill          `json:"bills"`
	TotalBills    decimal.Decimal `json:"total_bills"`
	FutureFund    decimal.Decimal `json:"future_fund"`
	FlexMoney     decimal.Decimal `json:"flex_money"`
	ManualContrib decimal.Decimal `json:"manual_contrib"`
}

// GoalSummary is the derived view of the savings goal.
type GoalSummary struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Covered   decimal.Decimal `json:"goal_covered"`
	Remaining decimal.Decimal `json:"goal_remaining"`
	Active    bool            `json:"active"`
}

// Report is a point in time projection of a Budget. It is never stored.
type Report struct {
	Accounts    []AccountSummary `json:"accounts"`
	TotalFuture decimal.Decimal  `json:"total_future"`
	TotalFlex   decimal.Decimal  `json:"total_flex"`
	Goal        GoalSummary      `json:"savings_goal"`
}

// BuildReport computes the summary for b without modifying it.
func BuildReport(b *Budget) Report {
	r := Report{
		Accounts:    make([]AccountSummary, 0, len(Periods)),
		TotalFuture: decimal.Zero,
		TotalFlex:   decimal.Zero,
	}
	for i := range b.accounts {
		a := &b.accounts[i]
		s := AccountSummary{
			Period:        a.Period,
			Salary:        a.Salary,
			Bills:         a.Bills.Items(),
			TotalBills:    a.Bills.Total(),
			FutureFund:    a.FutureFund(),
			FlexMoney:     a.FlexMoney(),
			ManualContrib: a.ManualContrib,
		}
		r.TotalFuture = r.TotalFuture.Add(s.FutureFund)
		r.TotalFlex = r.TotalFlex.Add(s.FlexMoney)
		r.Accounts = append(r.Accounts, s)
	}
	r.Goal = GoalSummary{
		Name:      b.Goal.Name,
		Amount:    b.Goal.Amount,
		Covered:   b.Goal.GoalCovered,
		Remaining: b.Goal.Remaining(),
		Active:    b.Goal.Active(),
	}
	return r
}

// Account returns the summary for p and whether it was found.
func (r Report) Account(p Period) (AccountSummary, bool) {
	for _, a := range r.Accounts {
		if a.Period == p {
			return a, true
		}
	}
	return AccountSummary{}, false
}
