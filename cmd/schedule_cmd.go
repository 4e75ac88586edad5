package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ynkmodelo/backup/internal/logger"
	"github.com/ynkmodelo/backup/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run automatic backups on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, db, cfg, err := newEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		sched := scheduler.New(engine, cfg.Retention.KeepLast, logger.Global())
		if err := sched.Start(cfg.Schedule); err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop

		sched.Stop()
		return nil
	},
}
