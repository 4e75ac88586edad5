package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Replace the live database with the given backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, db, _, err := newEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		rec, err := engine.Restore(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("restored %s (captured %s)\n", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}
