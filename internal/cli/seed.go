package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/internal/service"
)

// NewSeedCommand 初始化学年、班级与管理员账号
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := service.DefaultSeedOptions()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the academic year, sections 6-10 x A-C and an admin account",
		Long: `Seed the configured academic year with its sections and an admin account.

Safe to run repeatedly: existing sections and users are left untouched.
The admin password is read from --admin-password or SCHOOL_ADMIN_PASSWORD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.AdminPassword == "" {
				opts.AdminPassword = os.Getenv("SCHOOL_ADMIN_PASSWORD")
			}

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

			svc := service.NewSeedService(e.cfg, repository.NewRepository(db), e.logger)
			result, err := svc.Seed(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "academic year: %s\n", result.AcademicYear)
			fmt.Fprintf(out, "sections created: %d\n", result.SectionsCreated)
			fmt.Fprintf(out, "admin created: %t\n", result.AdminCreated)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.AdminSchoolID, "admin-id", opts.AdminSchoolID, "admin school ID")
	cmd.Flags().StringVar(&opts.AdminName, "admin-name", opts.AdminName, "admin full name")
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", "", "admin password (min 8 chars)")
	cmd.Flags().IntSliceVar(&opts.ClassLevels, "levels", opts.ClassLevels, "class levels to create")
	cmd.Flags().StringSliceVar(&opts.SectionNames, "sections", opts.SectionNames, "section names per level")
	return cmd
}
