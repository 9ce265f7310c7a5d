package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"paycheck/internal/core"
)

var salaryCmd = &cobra.Command{
	Use:   "salary <cutoff> <amount>",
	Short: "Set the salary of a cutoff (15th or 30th)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parseCutoff(args[0])
		if err != nil {
			return err
		}
		amount := core.ParseDecimalOrZero(args[1])
		if err := session.budget.SetSalary(cmd.Context(), p, amount); err != nil {
			return err
		}
		fmt.Printf("Salary for %s set to %s\n", p, core.FormatPeso(amount))
		return nil
	},
}

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Manage the bills of a cutoff",
}

var billAddCmd = &cobra.Command{
	Use:   "add <cutoff> <name> <amount>",
	Short: "Append a bill to a cutoff",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parseCutoff(args[0])
		if err != nil {
			return err
		}
		name := strings.TrimSpace(args[1])
		if name == "" {
			return fmt.Errorf("bill name cannot be empty")
		}
		amount := core.ParseAmountOrZero(args[2])
		if err := session.budget.AddBill(cmd.Context(), p, name, amount); err != nil {
			return err
		}
		fmt.Printf("Added %s (%s) to %s\n", name, core.FormatPeso(amount), p)
		return nil
	},
}

var billRmCmd = &cobra.Command{
	Use:   "rm <cutoff> <index>",
	Short: "Remove a bill by its position, as shown by report",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parseCutoff(args[0])
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid bill index %q", args[1])
		}
		removed, err := session.budget.DeleteBill(cmd.Context(), p, index)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("No bill at position %d in %s\n", index, p)
			return nil
		}
		fmt.Printf("Removed bill %d from %s\n", index, p)
		return nil
	},
}

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage the savings goal",
}

var goalSetCmd = &cobra.Command{
	Use:   "set <name> <amount>",
	Short: "Set the savings goal name and target, keeping progress",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount := core.ParseAmountOrZero(args[1])
		session.budget.SetGoal(cmd.Context(), args[0], amount)
		fmt.Printf("Savings goal %q set to %s\n", strings.TrimSpace(args[0]), core.FormatPeso(amount))
		return nil
	},
}

var goalRmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Delete the savings goal and its progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		session.budget.DeleteGoal(cmd.Context())
		fmt.Println("Savings goal deleted")
		return nil
	},
}

var (
	flagFirst  string
	flagSecond string
)

var contributeCmd = &cobra.Command{
	Use:   "contribute",
	Short: "Move flex money into the savings goal",
	Long:  "Contribute from each cutoff's flex money. Each request is capped at what the cutoff has available.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		requests := core.Contributions{
			core.FirstPeriod:  core.ParseAmountOrZero(flagFirst),
			core.SecondPeriod: core.ParseAmountOrZero(flagSecond),
		}
		applied := session.budget.Contribute(cmd.Context(), requests)

		total := decimal.Zero
		for _, p := range core.Periods {
			total = total.Add(applied[p])
			fmt.Printf("%s: requested %s, applied %s\n", p, core.FormatPeso(requests[p]), core.FormatPeso(applied[p]))
		}
		fmt.Printf("Goal covered increased by %s\n", core.FormatPeso(total))
		return nil
	},
}

func init() {
	contributeCmd.Flags().StringVar(&flagFirst, "first", "0", "Amount from the 15th cutoff")
	contributeCmd.Flags().StringVar(&flagSecond, "second", "0", "Amount from the 30th cutoff")

	billCmd.AddCommand(billAddCmd, billRmCmd)
	goalCmd.AddCommand(goalSetCmd, goalRmCmd)
	rootCmd.AddCommand(salaryCmd, billCmd, goalCmd, contributeCmd)
}

func parseCutoff(s string) (core.Period, error) {
	p, err := core.ParsePeriod(s)
	if err != nil {
		return "", fmt.Errorf("%w %q: want %s or %s", err, s, core.FirstPeriod, core.SecondPeriod)
	}
	return p, nil
}
