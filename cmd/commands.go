package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/config"
	"github.com/Kosench/go-url-tracker/internal/database"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the reconciliation sweep on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			scheduler, err := newScheduler(a)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			scheduler.Start(ctx)
			<-ctx.Done()

			log.Info("stopping scheduler")
			<-scheduler.Stop().Done()
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run a single reconciliation sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.reconciler.Sweep(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d expired=%d reactivated=%d skipped=%d notified=%d notify_failures=%d write_failures=%d\n",
				result.Scanned, result.Expired, result.Reactivated, result.Skipped,
				result.Notified, result.NotifyFailures, result.WriteFailures)
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(0)
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1 step)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				return runMigrate(-steps)
			},
		},
	)
	return cmd
}

func runMigrate(steps int) error {
	cfg, log, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.Storage == config.StorageMemory {
		log.Warn("in-memory storage has no schema to migrate")
		return nil
	}

	log.Info("running migrations", zap.Int("steps", steps))
	return database.Migrate(cfg.Database.GetDSN(), steps, log)
}
