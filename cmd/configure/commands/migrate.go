package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCmd applies pending schema migrations
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			applied, err := db.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", applied)
			return nil
		},
	}
}
