package cli

import (
	"github.com/spf13/cobra"

	"github.com/cyberrange/rangescan/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  runMigrateStatus,
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	cmd.Println("Database schema is up to date.")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := cfg.Validate(); err != nil {
		return err
	}
	database, err := db.Connect(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	lines, err := db.NewMigrator(database.DB).Status(ctx)
	if err != nil {
		return err
	}
	for _, line := range lines {
		cmd.Println(line)
	}
	return nil
}
