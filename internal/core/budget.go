package core

import "github.com/shopspring/decimal"

// Budget is the whole allocator state: one account per cutoff and the
// savings goal they both feed. It is not safe for concurrent use; callers
// serialize access (see services.BudgetService).
type Budget struct {
	accounts [len(Periods)]Account
	Goal     Goal
}

// Contributions maps a cutoff to an amount. A missing period means zero.
type Contributions map[Period]decimal.Decimal

// NewBudget returns the default state: zero salaries, no bills, no goal.
func NewBudget() *Budget {
	b := &Budget{}
	for i, p := range Periods {
		b.accounts[i] = Account{
			Period:        p,
			Salary:        decimal.Zero,
			ManualContrib: decimal.Zero,
		}
	}
	b.Goal.Reset()
	return b
}

// Account returns the account for p, or nil when p is not a known cutoff.
func (b *Budget) Account(p Period) *Account {
	i := p.Index()
	if i < 0 {
		return nil
	}
	return &b.accounts[i]
}

// Contribute moves the requested amounts from each cutoff's flex money into
// the savings goal. Each cutoff is capped by its own flex money as it stands
// before this call; the cutoffs never borrow from each other. The returned
// map holds the applied amount for every cutoff, zero included.
func (b *Budget) Contribute(requests Contributions) Contributions {
	applied := make(Contributions, len(Periods))
	for i, p := range Periods {
		requested, ok := requests[p]
		if !ok {
			requested = decimal.Zero
		}
		actual := b.accounts[i].ApplyContribution(requested)
		b.Goal.AddCovered(actual)
		applied[p] = actual
	}
	return applied
}

// DeleteGoal clears the savings goal and the contributions made toward it.
// Calling it again leaves the same state.
func (b *Budget) DeleteGoal() {
	b.Goal.Reset()
	for i := range b.accounts {
		b.accounts[i].ManualContrib = decimal.Zero
	}
}

// Clone returns a deep copy that shares no bill storage with b.
func (b *Budget) Clone() *Budget {
	c := &Budget{Goal: b.Goal}
	for i, a := range b.accounts {
		c.accounts[i] = Account{
			Period:        a.Period,
			Salary:        a.Salary,
			ManualContrib: a.ManualContrib,
			Bills:         Ledger{bills: a.Bills.Items()},
		}
	}
	return c
}
