package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ynkmodelo/backup/internal/backup"
	"github.com/ynkmodelo/backup/internal/config"
	"github.com/ynkmodelo/backup/internal/database"
	"github.com/ynkmodelo/backup/internal/logger"
)

// ConfigFile is the path to the YAML configuration.
var (
	ConfigFile string
	// rootCmd is the base command for ynkbackup.
	rootCmd = &cobra.Command{
		Use:   "ynkbackup",
		Short: "Backup and restore for the arriendos SQLite database",
		Long: `ynkbackup snapshots the application's single-file database into
compressed, checksummed artifacts, restores them destructively over
the live file, and keeps the backup catalog self-healing.`,
	}
)

// Execute runs the root command.
func Execute() {
	log, err := logger.Init()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&ConfigFile, "config", "c", "", "path to YAML config file")
	rootCmd.AddCommand(backupCmd, restoreCmd, listCmd, deleteCmd, scheduleCmd)
}

// newEngine wires the backup engine and the data-access layer from config
// for one command invocation.
func newEngine() (*backup.Engine, *database.DB, config.Config, error) {
	var cfg config.Config
	if err := cfg.Load(ConfigFile); err != nil {
		return nil, nil, cfg, err
	}
	state := backup.NewState()
	db, err := database.Open(cfg.Backup.Database, state)
	if err != nil {
		return nil, nil, cfg, err
	}
	engine := backup.NewEngine(cfg.Backup.Database, cfg.Backup.Directory, db, state, logger.Global())
	return engine, db, cfg, nil
}
