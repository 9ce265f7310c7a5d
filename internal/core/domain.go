package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	FirstPeriod  Period = "15th"
	SecondPeriod Period = "30th"
)

// ReserveRate is the share of salary set aside as future fund.
var ReserveRate = decimal.RequireFromString("0.20")

// Periods lists the pay periods in processing order.
var Periods = [...]Period{FirstPeriod, SecondPeriod}

type (
	// Period identifies one of the two monthly cutoffs.
	Period string

	Bill struct {
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
	}

	// Ledger is an ordered list of bills addressed by position only.
	// Positions shift after a removal, so an index is only meaningful
	// against the state the caller last rendered.
	Ledger struct {
		bills []Bill
	}

	Account struct {
		Period        Period
		Salary        decimal.Decimal
		Bills         Ledger
		ManualContrib decimal.Decimal
	}

	Goal struct {
		Name        string
		Amount      decimal.Decimal
		GoalCovered decimal.Decimal
	}
)

var (
	ErrUnknownPeriod = errors.New("unknown pay period")
)

// ParsePeriod accepts the cutoff labels used by the forms ("15th", "30th").
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.TrimSpace(s))
	if !p.Valid() {
		return "", ErrUnknownPeriod
	}
	return p, nil
}

// Valid reports whether p is one of the two fixed cutoffs.
func (p Period) Valid() bool {
	return p == FirstPeriod || p == SecondPeriod
}

// Index returns the account slot for p, or -1 for an unknown period.
func (p Period) Index() int {
	switch p {
	case FirstPeriod:
		return 0
	case SecondPeriod:
		return 1
	default:
		return -1
	}
}

func (p Period) String() string {
	return string(p)
}

// Append adds a bill at the end of the ledger.
func (l *Ledger) Append(name string, amount decimal.Decimal) {
	l.bills = append(l.bills, Bill{Name: name, Amount: amount})
}

// RemoveAt deletes the bill at index. Out of range indexes are ignored so
// that a repeated delete is harmless; the return value reports whether a
// bill was actually removed.
func (l *Ledger) RemoveAt(index int) bool {
	if index < 0 || index >= len(l.bills) {
		return false
	}
	l.bills = append(l.bills[:index], l.bills[index+1:]...)
	return true
}

// Total sums all bill amounts.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range l.bills {
		total = total.Add(b.Amount)
	}
	return total
}

func (l *Ledger) Len() int {
	return len(l.bills)
}

// Items returns a copy of the bills in insertion order.
func (l *Ledger) Items() []Bill {
	out := make([]Bill, len(l.bills))
	copy(out, l.bills)
	return out
}

// SetSalary replaces the salary. Negative values are stored as given.
func (a *Account) SetSalary(v decimal.Decimal) {
	a.Salary = v
}

// FutureFund is the reserved share of salary.
func (a *Account) FutureFund() decimal.Decimal {
	return a.Salary.Mul(ReserveRate)
}

// FlexMoney is what is left after bills, the reserve and contributions
// already moved to the savings goal. It may be negative.
func (a *Account) FlexMoney() decimal.Decimal {
	return a.Salary.
		Sub(a.Bills.Total()).
		Sub(a.FutureFund()).
		Sub(a.ManualContrib)
}

// ApplyContribution moves up to requested from flex money into the manual
// contribution total and returns the amount actually moved. The cap is
// computed from the flex money before this contribution.
func (a *Account) ApplyContribution(requested decimal.Decimal) decimal.Decimal {
	if !requested.IsPositive() {
		return decimal.Zero
	}
	available := decimal.Max(a.FlexMoney(), decimal.Zero)
	actual := decimal.Min(requested, available)
	a.ManualContrib = a.ManualContrib.Add(actual)
	return actual
}

// SetTarget replaces the goal name and target amount, keeping progress.
func (g *Goal) SetTarget(name string, amount decimal.Decimal) {
	g.Name = strings.TrimSpace(name)
	g.Amount = amount
}

// AddCovered records progress toward the goal. Negative amounts are ignored
// so progress never decreases outside of Reset.
func (g *Goal) AddCovered(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	g.GoalCovered = g.GoalCovered.Add(amount)
}

// Remaining is the amount still needed, never below zero.
func (g *Goal) Remaining() decimal.Decimal {
	return decimal.Max(g.Amount.Sub(g.GoalCovered), decimal.Zero)
}

// Active reports whether a goal has been named.
func (g *Goal) Active() bool {
	return g.Name != ""
}

func (g *Goal) Reset() {
	g.Name = ""
	g.Amount = decimal.Zero
	g.GoalCovered = decimal.Zero
}
