package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paycheck/internal/cli"
)

var flagJSON bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show salaries, bills, future fund, flex money and the savings goal",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, _ []string) error {
	r := session.budget.Report()
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Println()
	fmt.Print(cli.RenderReport(r))
	return nil
}
