// Package http provides the dashboard server and its handlers.
//
// This file turns the combined dashboard form into a services.Update. Each
// section of the form is optional; a section is applied only when its fields
// were submitted, so one POST can set a salary, add a bill, change the goal
// and contribute at once.
package http

import (
	"net/url"
	"strings"

	"paycheck/internal/core"
	"paycheck/internal/services"
)

// Form field names posted by index.html.
const (
	fieldCutoff       = "cutoff"
	fieldSalary       = "salary"
	fieldBillName     = "bill_name"
	fieldBillAmount   = "bill_amount"
	fieldGoalName     = "goal_name"
	fieldGoalAmount   = "goal_amount"
	fieldContribFirst = "contrib_15th"
	fieldContribSecnd = "contrib_30th"
)

// ParseBudgetForm maps submitted form values onto an update.
//
//   - a non-empty salary sets the salary of the selected cutoff
//   - a bill is added only when both its name and amount are non-empty
//   - the goal is replaced when either goal field is present, even if empty
//   - contributions run when either contribution field is present
//
// Amounts that do not parse become zero. Bill, goal and contribution amounts
// are never negative; a negative salary is kept as entered.
func ParseBudgetForm(form url.Values) services.Update {
	u := services.Update{
		Period: core.Period(strings.TrimSpace(form.Get(fieldCutoff))),
	}

	if raw := strings.TrimSpace(form.Get(fieldSalary)); raw != "" {
		salary := core.ParseDecimalOrZero(raw)
		u.Salary = &salary
	}

	name := sanitizeInput(form.Get(fieldBillName))
	if raw := strings.TrimSpace(form.Get(fieldBillAmount)); name != "" && raw != "" {
		u.Bill = &services.BillInput{
			Name:   name,
			Amount: core.ParseAmountOrZero(raw),
		}
	}

	if hasAny(form, fieldGoalName, fieldGoalAmount) {
		u.Goal = &services.GoalInput{
			Name:   sanitizeInput(form.Get(fieldGoalName)),
			Amount: core.ParseAmountOrZero(form.Get(fieldGoalAmount)),
		}
	}

	if hasAny(form, fieldContribFirst, fieldContribSecnd) {
		u.Contributions = core.Contributions{
			core.FirstPeriod:  core.ParseAmountOrZero(form.Get(fieldContribFirst)),
			core.SecondPeriod: core.ParseAmountOrZero(form.Get(fieldContribSecnd)),
		}
	}

	return u
}

func hasAny(form url.Values, keys ...string) bool {
	for _, k := range keys {
		if _, ok := form[k]; ok {
			return true
		}
	}
	return false
}
