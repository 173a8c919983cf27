package cli

import (
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/iduprojects/insert-services/pkg/database"
)

func newMigrateCommand(a *app) *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB := stdlib.OpenDBFromPool(a.db.Pool)
			defer sqlDB.Close()
			return database.RunMigrations(sqlDB, migrationsPath, a.logger)
		},
	}

	cmd.Flags().StringVar(&migrationsPath, "path", "migrations", "directory with migration files")

	return cmd
}
