package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupReason string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a compressed snapshot of the live database",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, db, _, err := newEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		rec, err := engine.Create(cmd.Context(), backupReason)
		if err != nil {
			return err
		}
		fmt.Printf("created %s (%d bytes, %d compressed)\n", rec.ID, rec.Size, rec.CompressedSize)
		return nil
	},
}

func init() {
	backupCmd.Flags().
		StringVar(&backupReason, "reason", "manual", "reason recorded with the backup")
}
