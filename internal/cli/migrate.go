package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/pkg/database"
)

// NewMigrateCommand 执行或回滚数据库迁移
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (or roll back with --down)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			db, err := database.NewDB(&e.cfg.Database, e.cfg.Log.Level, e.logger)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()

			if down > 0 {
				if !database.IsPostgres(db) {
					return fmt.Errorf("回滚仅支持 postgres 驱动")
				}
				if err := database.RollbackMigrations(db, down, e.logger); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", down)
				return nil
			}

			if err := database.Migrate(db, e.logger, model.All()...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to roll back (postgres only)")
	return cmd
}
