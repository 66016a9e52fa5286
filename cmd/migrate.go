package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/streed/notes-browser/internal/database"
	"github.com/streed/notes-browser/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the schema of the local notes database",
	Long: `Inspect and manage schema migrations of the SQLite database used by
'notes-browser serve'.

Pending migrations are applied automatically whenever the database is opened,
so 'run' is mostly useful for troubleshooting.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runMigrateStatus,
}

var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply pending migrations",
	RunE:  runMigrateRun,
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback [migration ID]",
	Short: "Revert a single applied migration",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrateRollback,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateRunCmd)
	migrateCmd.AddCommand(migrateRollbackCmd)
}

func withRunner(fn func(r *migrations.Runner) error) error {
	db, err := database.New(appConfig.GetDatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(migrations.NewRunner(db.Conn()))
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	return withRunner(func(r *migrations.Runner) error {
		status, err := r.Status()
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "MIGRATION ID\tSTATUS\tDESCRIPTION\n")
		applied := 0
		for _, m := range status {
			state := "PENDING"
			if m.Applied {
				state = "APPLIED"
				applied++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, state, m.Description)
		}
		w.Flush()

		fmt.Printf("\nApplied: %d, pending: %d\n", applied, len(status)-applied)
		return nil
	})
}

func runMigrateRun(cmd *cobra.Command, args []string) error {
	return withRunner(func(r *migrations.Runner) error {
		count, err := r.Run()
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Printf("Applied %d migration(s).\n", count)
		return nil
	})
}

func runMigrateRollback(cmd *cobra.Command, args []string) error {
	return withRunner(func(r *migrations.Runner) error {
		if err := r.Rollback(args[0]); err != nil {
			return err
		}
		fmt.Printf("Rolled back %s.\n", args[0])
		return nil
	})
}
