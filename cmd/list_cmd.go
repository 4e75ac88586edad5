package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ynkmodelo/backup/internal/backup"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, db, _, err := newEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		catalog, err := engine.List()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tSIZE\tCOMPRESSED\tSTORES\tREASON")
		for _, rec := range catalog.Records {
			stores := "?"
			if rec.StoreCount != backup.StoreCountUnknown {
				stores = fmt.Sprintf("%d", rec.StoreCount)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
				rec.ID,
				rec.CreatedAt.Format("2006-01-02 15:04:05"),
				rec.Size,
				rec.CompressedSize,
				stores,
				rec.Reason,
			)
		}
		w.Flush()

		fmt.Printf("\n%d backups, %d bytes total", len(catalog.Records), catalog.TotalSize)
		if catalog.LastBackup != nil {
			fmt.Printf(", newest %s", catalog.LastBackup.Format("2006-01-02 15:04:05 MST"))
		}
		fmt.Println()
		return nil
	},
}
