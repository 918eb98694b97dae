package cli

import (
	"github.com/spf13/cobra"

	"github.com/grabpic/grabpic-api/internal/infrastructure/persistence/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the album, photo and embedding tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		db, err := postgres.NewDBConnection(ctx, &cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.AutoMigrate(ctx); err != nil {
			return err
		}
		cmd.Println("Schema is up to date.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
