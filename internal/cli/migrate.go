package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Create the posts, comments and likes tables if they are missing and
print the resulting schema version.

Example:
  feed migrate --db ./sns.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())

			sess, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			version, err := sess.Version(ctx)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			return printVersion(cmd.OutOrStdout(), version)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database DSN or SQLite file path")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|postgres)")

	return cmd
}

func printVersion(w io.Writer, version int) error {
	_, err := fmt.Fprintf(w, "schema version %d\n", version)
	return err
}
