package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"rubik/adapters/excel"
	"rubik/adapters/postgres"
	"rubik/app"
	"rubik/internal"
	"rubik/internal/config"
	"rubik/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "rubik-cli",
		Short:         "Rubik administration: migrations and account provisioning",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newCreateStaffCmd(),
		newImportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// environment is what every subcommand needs: a migrated database and a logger
type environment struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func (e *environment) Close() {
	e.db.Close()
	_ = e.logger.Sync()
}

func openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := internal.NewLogger(internal.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Log.Environment,
		Service:     "rubik-cli",
	})
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return &environment{db: db, logger: logger}, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			version, err := migration.NewRunner().Version(cmd.Context(), env.db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at migration version %d\n", version)
			return nil
		},
	}
}

func newCreateStaffCmd() *cobra.Command {
	var in app.NewAccount

	cmd := &cobra.Command{
		Use:   "createstaff",
		Short: "Create an active staff account",
		Long: `Create an active staff account that can use the approval dashboard.

Example: rubik-cli createstaff --username admin --email admin@example.com --password 'long-secret-pass'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			in.IsStaff = true
			svc := app.NewProvisioningService(postgres.NewIdentityStore(env.db), env.logger)
			account, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created staff account %s (id %d)\n", account.Username, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "Username")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create active accounts from an .xlsx or .csv file",
		Long: `Create active accounts from a spreadsheet whose header row holds
username, email, first_name, last_name, password and is_staff.

Rows that fail validation are reported and skipped; the rest are imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := excel.ReadAccounts(args[0])
			if err != nil {
				return err
			}

			env, err := openEnvironment(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			svc := app.NewProvisioningService(postgres.NewIdentityStore(env.db), env.logger)
			created, failed := importAccounts(cmd.Context(), svc, rows, cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d accounts, %d failed\n", created, failed)
			if failed > 0 {
				return fmt.Errorf("%d rows could not be imported", failed)
			}
			return nil
		},
	}
}

// importAccounts provisions each row independently, reporting failures to out
func importAccounts(ctx context.Context, svc *app.ProvisioningService, rows []excel.AccountRow, out io.Writer) (created, failed int) {
	for _, row := range rows {
		_, err := svc.Create(ctx, app.NewAccount{
			Username:  row.Username,
			Email:     row.Email,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Password:  row.Password,
			IsStaff:   row.IsStaff,
		})
		if err != nil {
			failed++
			fmt.Fprintf(out, "line %d (%s): %v\n", row.Line, row.Username, err)
			continue
		}
		created++
	}
	return created, failed
}
