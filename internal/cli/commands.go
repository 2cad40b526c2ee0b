package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/importer"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type app struct {
	cfg       *config.Config
	logger    *applog.Logger
	dbPath    string
	logLevel  string
	logFormat string
}

// NewRootCommand builds the fintrack-cli command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "fintrack-cli",
		Short:         "Administer a fintrack database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.Load()
			if a.dbPath == "" {
				a.dbPath = a.cfg.SQLiteDBPath
			}
			a.logger = applog.New(applog.Config{
				Level:     applog.ParseLevel(a.logLevel),
				Format:    a.logFormat,
				Component: applog.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (default: SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format (text, json, tint)")

	root.AddCommand(a.migrateCmd())
	root.AddCommand(a.userCmd())
	root.AddCommand(a.importCmd())
	return root
}

func (a *app) openRepo() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(a.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return repo, nil
}

func (a *app) migrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !status {
				if dir := filepath.Dir(a.dbPath); dir != "" && dir != "." {
					if err := os.MkdirAll(dir, 0755); err != nil {
						return fmt.Errorf("create db directory: %w", err)
					}
				}
				if err := storage.RunMigrations(a.dbPath); err != nil {
					return err
				}
				a.logger.Info("Migrations applied", "path", a.dbPath)
			}
			version, dirty, err := storage.MigrationVersion(a.dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "show the current schema version without migrating")
	return cmd
}

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var email, name, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user with the default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("FINTRACK_PASSWORD")
			}
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			user, err := auth.NewPasswordAuthenticator(repo).Register(cmd.Context(), email, name, password)
			if err != nil {
				return err
			}
			a.logger.Info("User created", applog.FieldUserID, user.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s <%s> id=%s\n", user.Name, user.Email, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "email address")
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&password, "password", "", "password (default: FINTRACK_PASSWORD)")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("name")

	cmd.AddCommand(add)
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from files",
	}

	var (
		email    string
		category string
		m        importer.Mapping
	)
	csvCmd := &cobra.Command{
		Use:   "csv FILE",
		Short: "Import a bank CSV export for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			user, err := repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				return fmt.Errorf("user %s: %w", email, err)
			}
			m.CategoryID, err = resolveCategory(cmd, repo, user.ID, m.HouseholdID, category)
			if err != nil {
				return err
			}

			svc := services.NewImportService(repo, nil, services.NopPublisher{}, nil, a.logger.Logger)
			res, err := svc.Confirm(ctx, user.ID, filepath.Base(args[0]), data, m)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d, skipped %d\n", res.Imported, res.Skipped)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  %s\n", e)
			}
			return nil
		},
	}
	csvCmd.Flags().StringVar(&email, "email", "", "email of the owning user")
	csvCmd.Flags().StringVar(&category, "category", "", "category id or name")
	csvCmd.Flags().StringVar(&m.DateColumn, "date-column", "", "column holding the booking date")
	csvCmd.Flags().StringVar(&m.AmountColumn, "amount-column", "", "column holding the amount")
	csvCmd.Flags().StringVar(&m.DescriptionColumn, "description-column", "", "column holding the description")
	csvCmd.Flags().StringVar(&m.DateFormat, "date-format", importer.DefaultDateFormat, "strftime style date format")
	csvCmd.Flags().BoolVar(&m.NegateAmounts, "negate", false, "flip the sign of every amount")
	csvCmd.Flags().StringVar(&m.HouseholdID, "household", "", "household to share the transactions with")
	for _, f := range []string{"email", "category", "date-column", "amount-column"} {
		_ = csvCmd.MarkFlagRequired(f)
	}

	cmd.AddCommand(csvCmd)
	return cmd
}

// resolveCategory accepts a category id or a case-insensitive name visible
// to the user.
func resolveCategory(cmd *cobra.Command, repo *storage.SQLiteRepository, userID, householdID, ref string) (string, error) {
	cats, err := repo.ListCategories(cmd.Context(), core.Scope{UserID: userID, HouseholdID: householdID})
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	for _, c := range cats {
		if c.ID == ref {
			return c.ID, nil
		}
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("%w: category %q", core.ErrNotFound, ref)
}
