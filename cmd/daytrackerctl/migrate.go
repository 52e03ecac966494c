package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"daytracker/internal/log"
	"daytracker/internal/storage"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.config().SQLiteDBPath
			if path == "" {
				return fmt.Errorf("SQLITE_DB_PATH or --db is required")
			}
			// Opening the repository creates the directory and migrates.
			repo, err := storage.NewSQLiteRepository(path)
			if err != nil {
				return err
			}
			if err := repo.Close(); err != nil {
				return err
			}

			version, dirty, err := storage.SchemaVersion(path)
			if err != nil {
				return err
			}
			opts.logger(cmd.ErrOrStderr()).InfoContext(cmd.Context(), "Schema migrated",
				log.FieldOperation, log.OpMigrate,
				log.FieldVersion, version,
				"dirty", dirty)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t) at %s\n", version, dirty, path)
			return nil
		},
	}
}
