package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cybernetisk/okotools/pkg/db"
	"github.com/spf13/cobra"
)

var statsRecent int

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display export statistics",
	Long: `Display statistics about exported Z-reports.

Shows:
- Total number of exported reports and export batches
- Total sales of the exported reports
- Last export timestamp and the stored next voucher number

Example:
  okotools stats
  okotools stats --recent 10`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsRecent, "recent", 0, "also list the most recent exported reports")
}

func runStats(cmd *cobra.Command, args []string) {
	env, err := loadEnvironment()
	exitOnError(err, "failed to load configuration")

	dbPath := env.paths.DatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	err = printStats(cmd.Context(), os.Stdout, db.NewExportHistory(conn), statsRecent)
	exitOnError(err, "failed to get statistics")
}

func printStats(ctx context.Context, w io.Writer, history *db.ExportHistory, recent int) error {
	stats, err := history.GetStats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\n=== Export Statistics ===")
	fmt.Fprintf(w, "Exported reports:    %d\n", stats.TotalReports)
	fmt.Fprintf(w, "Export batches:      %d\n", stats.TotalBatches)
	fmt.Fprintf(w, "Total sales:         %s\n", stats.GrossTotal.StringFixed(2))

	if stats.LastExport.Valid {
		fmt.Fprintf(w, "Last export:         %s\n", stats.LastExport.String)
	} else {
		fmt.Fprintf(w, "Last export:         (never)\n")
	}

	if stats.NextVoucherNumber > 0 {
		fmt.Fprintf(w, "Next voucher number: %d\n", stats.NextVoucherNumber)
	} else {
		fmt.Fprintf(w, "Next voucher number: (unknown)\n")
	}

	if recent > 0 {
		records, err := history.ListExports(ctx, "")
		if err != nil {
			return err
		}
		if len(records) > recent {
			records = records[:recent]
		}
		fmt.Fprintln(w, "\nRecent exports:")
		for _, r := range records {
			fmt.Fprintf(w, "  %d  %-8s %s  %10s  %s\n",
				r.VoucherNumber, r.ZNr, r.ReportDate, r.GrossTotal.StringFixed(2), r.Destination)
		}
	}

	fmt.Fprintln(w)
	return nil
}
