/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/TrustyKrab/Englix-Server/config"
	"github.com/TrustyKrab/Englix-Server/internal/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "englix",
	Short: "Englix quiz platform backend",
	Long: `Englix serves accounts, sessions and quiz history for the Englix web client.

	englix server        start the HTTP API
	englix migrate up    prepare the database
	englix mail-worker   deliver queued email`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and configures logging before any command runs.
func loadConfig() config.Config {
	cfg := config.LoadConfig()
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg
}
