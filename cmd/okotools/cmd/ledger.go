package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cybernetisk/okotools/pkg/ledger"
	"github.com/cybernetisk/okotools/pkg/pathutil"
	"github.com/cybernetisk/okotools/pkg/reports"
	"github.com/cybernetisk/okotools/pkg/tripletex"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	ledgerFrom        string
	ledgerTo          string
	ledgerAccountFrom int
	ledgerAccountTo   int
	ledgerXLSX        bool
	ledgerNoLists     bool
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Ledger reports",
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the aggregated ledger report from Tripletex",
	Long: `Fetch all postings in the date range from Tripletex and write them
aggregated by month, department, project and account to aggregated.txt.

The department, account and project lists are written next to it.

Example:
  okotools ledger export --from 2024-01-01 --to 2024-12-31
  okotools ledger export --from 2024-01-01 --to 2024-06-30 --account-from 3000 --account-to 3999 --xlsx`,
	Run: runLedgerExport,
}

var ledgerMamutCmd = &cobra.Command{
	Use:   "mamut <file>",
	Short: "Build the semester report from a Mamut ledger export",
	Args:  cobra.ExactArgs(1),
	Run:   runLedgerMamut,
}

func init() {
	ledgerExportCmd.Flags().StringVar(&ledgerFrom, "from", "", "first date, YYYY-MM-DD (required)")
	ledgerExportCmd.Flags().StringVar(&ledgerTo, "to", "", "last date, YYYY-MM-DD, inclusive (required)")
	ledgerExportCmd.Flags().IntVar(&ledgerAccountFrom, "account-from", 0, "lowest account number")
	ledgerExportCmd.Flags().IntVar(&ledgerAccountTo, "account-to", 0, "highest account number")
	ledgerExportCmd.Flags().BoolVar(&ledgerXLSX, "xlsx", false, "also write aggregated.xlsx")
	ledgerExportCmd.Flags().BoolVar(&ledgerNoLists, "no-lists", false, "skip the department, account and project lists")
	_ = ledgerExportCmd.MarkFlagRequired("from")
	_ = ledgerExportCmd.MarkFlagRequired("to")

	ledgerCmd.AddCommand(ledgerExportCmd)
	ledgerCmd.AddCommand(ledgerMamutCmd)
}

// ledgerExportOptions are the parsed flags of ledger export.
type ledgerExportOptions struct {
	From        time.Time
	To          time.Time // inclusive
	AccountFrom int
	AccountTo   int
	XLSX        bool
	Lists       bool
}

func parseLedgerExportOptions() (ledgerExportOptions, error) {
	from, err := time.Parse(dateLayout, ledgerFrom)
	if err != nil {
		return ledgerExportOptions{}, fmt.Errorf("invalid --from: %w", err)
	}
	to, err := time.Parse(dateLayout, ledgerTo)
	if err != nil {
		return ledgerExportOptions{}, fmt.Errorf("invalid --to: %w", err)
	}
	if to.Before(from) {
		return ledgerExportOptions{}, fmt.Errorf("--to %s is before --from %s", ledgerTo, ledgerFrom)
	}
	if ledgerAccountTo != 0 && ledgerAccountTo < ledgerAccountFrom {
		return ledgerExportOptions{}, fmt.Errorf("--account-to %d is below --account-from %d", ledgerAccountTo, ledgerAccountFrom)
	}

	return ledgerExportOptions{
		From:        from,
		To:          to,
		AccountFrom: ledgerAccountFrom,
		AccountTo:   ledgerAccountTo,
		XLSX:        ledgerXLSX,
		Lists:       !ledgerNoLists,
	}, nil
}

func runLedgerExport(cmd *cobra.Command, args []string) {
	opts, err := parseLedgerExportOptions()
	exitOnError(err, "Invalid arguments")

	env, err := loadEnvironment()
	exitOnError(err, "Failed to load configuration")

	client, err := env.requireClient()
	exitOnError(err, "Tripletex is not configured")

	fmt.Printf("Fetching postings %s to %s...\n", opts.From.Format(dateLayout), opts.To.Format(dateLayout))

	written, err := exportLedger(cmd.Context(), client, env.repo, opts, time.Now())
	exitOnError(err, "Ledger export failed")

	fmt.Println()
	fmt.Println("Ledger export completed")
	for _, name := range written {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("Reports saved in %s\n", env.paths.Root())
}

// exportLedger fetches postings, writes the aggregated report and the
// reference lists, and returns the names of the written reports.
func exportLedger(ctx context.Context, client *tripletex.Client, repo reports.Repository, opts ledgerExportOptions, now time.Time) ([]string, error) {
	postings, err := client.ListPostings(ctx, tripletex.PostingQuery{
		DateFrom:    opts.From,
		DateTo:      opts.To.AddDate(0, 0, 1),
		AccountFrom: opts.AccountFrom,
		AccountTo:   opts.AccountTo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch postings: %w", err)
	}
	slog.Info("fetched postings", "count", len(postings))

	root := ledger.Aggregate(postings, ledger.StandardLevels()...)

	var written []string

	var buf bytes.Buffer
	if err := ledger.WriteReport(&buf, root, now); err != nil {
		return nil, err
	}
	if err := repo.WriteReport(pathutil.AggregatedReport, buf.Bytes()); err != nil {
		return nil, err
	}
	written = append(written, pathutil.AggregatedReport)

	if opts.XLSX {
		buf.Reset()
		if err := ledger.WriteReportXLSX(&buf, root, now); err != nil {
			return nil, err
		}
		if err := repo.WriteReport(pathutil.AggregatedXLSX, buf.Bytes()); err != nil {
			return nil, err
		}
		written = append(written, pathutil.AggregatedXLSX)
	}

	if !opts.Lists {
		return written, nil
	}

	departments, err := client.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departments: %w", err)
	}
	if err := repo.WriteReport(pathutil.DepartmentsReport, reports.DepartmentList(departments)); err != nil {
		return nil, err
	}

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	if err := repo.WriteReport(pathutil.AccountsReport, reports.AccountList(accounts)); err != nil {
		return nil, err
	}

	projects, err := client.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}
	if err := repo.WriteReport(pathutil.ProjectsReport, reports.ProjectList(projects)); err != nil {
		return nil, err
	}

	return append(written, pathutil.DepartmentsReport, pathutil.AccountsReport, pathutil.ProjectsReport), nil
}

func runLedgerMamut(cmd *cobra.Command, args []string) {
	env, err := loadEnvironment()
	exitOnError(err, "Failed to load configuration")

	count, err := exportMamut(args[0], env.repo)
	exitOnError(err, "Semester report failed")

	fmt.Printf("Read %d postings from %s\n", count, args[0])
	fmt.Printf("Semester report saved to %s\n", pathutil.SemesterReport)
}

// exportMamut writes the semester report for a Mamut export file and returns
// the number of postings it covers.
func exportMamut(path string, repo reports.Repository) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	postings, err := ledger.ReadMamutExport(f)
	if err != nil {
		return 0, err
	}

	root := ledger.Aggregate(postings, ledger.SemesterLevels()...)

	var buf bytes.Buffer
	if err := ledger.WriteSemesterReport(&buf, root); err != nil {
		return 0, err
	}
	if err := repo.WriteReport(pathutil.SemesterReport, buf.Bytes()); err != nil {
		return 0, err
	}
	return len(postings), nil
}
