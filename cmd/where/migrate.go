package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/infra/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.NewPostgres(conf.Server.PostgresDsn, log)
		if err != nil {
			return err
		}
		if err := database.MigratePostgres(db); err != nil {
			return err
		}
		log.Info("migration complete", zap.String("dsn", redactDSN(conf.Server.PostgresDsn)))
		return nil
	},
}
