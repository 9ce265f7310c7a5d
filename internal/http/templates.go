package http

import (
	"html/template"

	"paycheck/internal/core"
)

var templateFuncs = template.FuncMap{
	"currency": core.FormatPesoValue,
	"cutoffLabel": func(p core.Period) string {
		switch p {
		case core.FirstPeriod:
			return "15th Cutoff"
		case core.SecondPeriod:
			return "30th Cutoff"
		default:
			return p.String()
		}
	},
}
