package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/internal/service"
)

// NewSweepCommand 立即执行一次逾期账单扫描
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark pending fees past their due date as OVERDUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(rootOpts)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			db, closeDB, err := e.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			finance := service.NewFinanceService(e.cfg, repository.NewRepository(db), nil, e.logger)
			n, err := finance.SweepOverdue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d fee(s) overdue\n", n)
			return nil
		},
	}
}
