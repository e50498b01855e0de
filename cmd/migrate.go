package main

import (
	"errors"

	"github.com/spf13/cobra"

	"dmchat/internal/app/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.DatabaseDSN == "" {
			return errors.New("DATABASE_URL is not set")
		}

		pool, err := db.NewPool(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		return db.Migrate(pool)
	},
}
