package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paycheck/internal/backend"
	"paycheck/internal/cli"
	"paycheck/internal/config"
	applog "paycheck/internal/log"
	"paycheck/internal/services"
)

var (
	flagDBPath string
	flagNotify bool
	flagQuiet  bool
)

// session is the budget opened for the running command.
var session struct {
	budget  *services.BudgetService
	cleanup backend.CleanupFunc
}

var rootCmd = &cobra.Command{
	Use:          "paycheckctl",
	Short:        "Inspect and edit the paycheck budget",
	Long:         "Operate on the paycheck planner database: show the report, set salaries, manage bills, the savings goal and contributions.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if skipsBudget(cmd) {
			return nil
		}
		return openBudget(cmd.Context())
	},
}

func init() {
	cli.LoadEnvFile()
	defaults := config.Defaults()
	if v := os.Getenv("SQLITE_DB_PATH"); v != "" {
		defaults.SQLiteDBPath = v
	}

	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", defaults.SQLiteDBPath, "SQLite database file")
	rootCmd.PersistentFlags().BoolVar(&flagNotify, "notify", true, "Publish change notifications when AMQP_URL is set")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
}

// closeBudget releases the database and broker opened by openBudget. It
// runs after every command, including failed ones.
func closeBudget() error {
	if session.cleanup == nil {
		return nil
	}
	err := session.cleanup()
	session.cleanup = nil
	session.budget = nil
	return err
}

// skipsBudget reports whether cmd runs without opening the database.
func skipsBudget(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion":
			return true
		}
	}
	return false
}

func openBudget(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.DataBackend = string(backend.SQLiteBackend)
	cfg.SQLiteDBPath = flagDBPath
	if !flagNotify {
		cfg.AMQPURL = ""
	}
	if flagQuiet {
		cfg.LogLevel = "error"
	} else if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cli.SetupLogger(cfg, applog.ComponentCLI, os.Stderr)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open budget: %w", err)
	}

	opts := []services.Option{services.WithLogger(logger.WithComponent(applog.ComponentBudget))}
	if be.Notifier != nil {
		opts = append(opts, services.WithNotifier(be.Notifier))
	}

	session.budget = services.NewBudgetService(ctx, be.Store, opts...)
	session.cleanup = be.Cleanup
	return nil
}
