/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TrustyKrab/Englix-Server/config"
	"github.com/TrustyKrab/Englix-Server/internal/db"
	"github.com/TrustyKrab/Englix-Server/internal/store"
)

var migrationsURL = "file://internal/db/migrations"

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations (postgres) or create indexes (mongo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		switch cfg.StoreBackend {
		case config.StorePostgres:
			return migratePostgres(cfg)
		case config.StoreMongo:
			client, database, err := db.OpenMongo(cmd.Context(), cfg.Mongo)
			if err != nil {
				return fmt.Errorf("connect mongo failed: %w", err)
			}
			defer func() {
				_ = client.Disconnect(cmd.Context())
			}()
			if err := store.NewMongoUserRepository(database).EnsureIndexes(cmd.Context()); err != nil {
				return fmt.Errorf("ensure indexes failed: %w", err)
			}
			log.Info().Str("database", cfg.Mongo.Database).Msg("Mongo indexes are up to date")
			return nil
		default:
			return fmt.Errorf("store backend %q has nothing to migrate", cfg.StoreBackend)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateUpCmd.Flags().StringVar(&migrationsURL, "source", migrationsURL, "migration source URL")
}

func migratePostgres(cfg config.Config) error {
	migrator, err := migrate.New(migrationsURL, db.PostgresURL(cfg.Database))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("Postgres schema already up to date")
			return nil
		}
		return fmt.Errorf("migrate up failed: %w", err)
	}
	log.Info().Msg("Postgres migrations applied")
	return nil
}
