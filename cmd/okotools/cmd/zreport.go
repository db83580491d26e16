package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cybernetisk/okotools/pkg/converter"
	"github.com/cybernetisk/okotools/pkg/db"
	"github.com/cybernetisk/okotools/pkg/tripletex"
	"github.com/cybernetisk/okotools/pkg/zreport"
	"github.com/spf13/cobra"
)

// destinationUpload marks export records that were uploaded to Tripletex.
const destinationUpload = "tripletex"

var errNoVoucherNumber = errors.New("next voucher number is unknown, pass --first-number")

var (
	zShowAll     bool
	zFirstNumber int
	zYear        int
	zUpload      bool
	zHide        bool
	zEncoding    string
	zProfile     string
	zForce       bool
)

var zreportCmd = &cobra.Command{
	Use:   "zreport",
	Short: "Cash register Z-reports",
	Long: `Inspect cash register Z-reports and export them as GBAT10 vouchers.

Reports are addressed as "group" or "group:revision" using the numbers
printed by "zreport list". Revision 0 is the newest build of a report.
Pass the same --all setting to every command so the numbers line up.`,
}

var zreportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Z-reports waiting for export",
	Args:  cobra.NoArgs,
	Run:   runZReportList,
}

var zreportShowCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Show the lines of a Z-report",
	Args:  cobra.ExactArgs(1),
	Run:   runZReportShow,
}

var zreportExportCmd = &cobra.Command{
	Use:   "export <ref>...",
	Short: "Export Z-reports as GBAT10 vouchers",
	Long: `Validate the referenced Z-reports and write them as one GBAT10 voucher
file, one voucher per report.

The first voucher number is taken from --first-number, otherwise from
Tripletex, otherwise from the number stored after the previous export.

Example:
  okotools zreport export 0 1 2:1
  okotools zreport export 3 --upload --hide`,
	Args: cobra.MinimumNArgs(1),
	Run:  runZReportExport,
}

var zreportHideCmd = &cobra.Command{
	Use:   "hide <ref>...",
	Short: "Flag Z-reports as imported without exporting them",
	Args:  cobra.MinimumNArgs(1),
	Run:   runZReportHide,
}

func init() {
	zreportCmd.PersistentFlags().BoolVar(&zShowAll, "all", false, "include reports already flagged as imported")

	zreportExportCmd.Flags().IntVar(&zFirstNumber, "first-number", 0, "first voucher number (default: next free number)")
	zreportExportCmd.Flags().IntVar(&zYear, "year", 0, "accounting year (default: OKOTOOLS_FISCAL_YEAR)")
	zreportExportCmd.Flags().BoolVar(&zUpload, "upload", false, "upload the vouchers to Tripletex")
	zreportExportCmd.Flags().BoolVar(&zHide, "hide", false, "flag the exported reports as imported")
	zreportExportCmd.Flags().StringVar(&zEncoding, "encoding", "iso-8859-1", "voucher file encoding (utf-8, iso-8859-1, windows-1252)")
	zreportExportCmd.Flags().StringVar(&zProfile, "vat-profile", "", "VAT code profile (default from mapping)")
	zreportExportCmd.Flags().BoolVar(&zForce, "force", false, "export reports that were exported before")

	zreportCmd.AddCommand(zreportListCmd)
	zreportCmd.AddCommand(zreportShowCmd)
	zreportCmd.AddCommand(zreportExportCmd)
	zreportCmd.AddCommand(zreportHideCmd)
}

func loadZReports(env *environment, showAll bool) ([]*zreport.ZGroup, error) {
	return zreport.Load(env.paths.ReportsJSON(), zreport.LoadOptions{
		ShowAll:  showAll,
		Remapper: env.mapper,
	})
}

// lookupRefs resolves operator references against the session.
func lookupRefs(s *zreport.Session, refs []string) ([]*zreport.Z, error) {
	zs := make([]*zreport.Z, 0, len(refs))
	for _, arg := range refs {
		ref, err := zreport.ParseRef(arg)
		if err != nil {
			return nil, err
		}
		z, err := s.Lookup(ref)
		if err != nil {
			return nil, err
		}
		zs = append(zs, z)
	}
	return zs, nil
}

func runZReportList(cmd *cobra.Command, args []string) {
	env, err := loadEnvironment()
	exitOnError(err, "Failed to load configuration")

	groups, err := loadZReports(env, zShowAll)
	exitOnError(err, "Failed to load Z-reports")

	printZReportList(os.Stdout, groups, env.mapper)
}

func printZReportList(w io.Writer, groups []*zreport.ZGroup, mapper *converter.Mapper) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No Z-reports found")
		return
	}

	for _, g := range groups {
		fmt.Fprintf(w, "%3d  %s\n", g.Index, g.Date)
		for i, z := range g.Zs {
			status := ""
			if !z.Validate() {
				status = "  UNBALANCED " + z.Sum().StringFixed(2)
			}
			if z.Legacy {
				status += "  legacy"
			}
			fmt.Fprintf(w, "     %d:%d  %-8s %-10s built %s  sales %10s  deviation %8s%s\n",
				g.Index, i,
				z.ZNr(),
				z.Type,
				z.BuildTime,
				z.TotalSales().StringFixed(2),
				z.Deviation(mapper.DeviationAccount(z.Legacy)).StringFixed(2),
				status,
			)
		}
	}
}

func runZReportShow(cmd *cobra.Command, args []string) {
	env, err := loadEnvironment()
	exitOnError(err, "Failed to load configuration")

	groups, err := loadZReports(env, zShowAll)
	exitOnError(err, "Failed to load Z-reports")

	zs, err := lookupRefs(zreport.NewSession(groups, 0, env.cfg.Okotools.FiscalYear), args)
	exitOnError(err, "Unknown report")

	printZReport(os.Stdout, zs[0])
}

func printZReport(w io.Writer, z *zreport.Z) {
	fmt.Fprintf(w, "%s  %s  %s (built %s)\n", z.ZNr(), z.Type, z.DateText, z.BuildDate)
	fmt.Fprintf(w, "Sheet: %s\n\n", z.SheetID)

	printLines := func(title string, lines []zreport.Transaction) {
		fmt.Fprintf(w, "%s:\n", title)
		for _, t := range lines {
			fmt.Fprintf(w, "  %-18s %-30s %12s  net %12s  vat %2d%%  account %s project %d\n",
				t.Code, t.Text, t.Amount.StringFixed(2), t.Netto().StringFixed(2), t.VAT, t.Account, t.Project)
		}
	}
	printLines("Sales", z.Sales)
	printLines("Debet", z.Debet)

	fmt.Fprintln(w)
	if err := z.Check(); err != nil {
		fmt.Fprintf(w, "Not balanced: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Balanced, total sales %s\n", z.TotalSales().StringFixed(2))
}

func runZReportHide(cmd *cobra.Command, args []string) {
	env, err := loadEnvironment()
	exitOnError(err, "Failed to load configuration")

	zs, err := hideZReports(env, args, zShowAll, time.Now())
	exitOnError(err, "Failed to hide Z-reports")

	for _, z := range zs {
		fmt.Printf("Hidden %s (%s)\n", z.ZNr(), z.Date)
	}
}

func hideZReports(env *environment, refs []string, showAll bool, now time.Time) ([]*zreport.Z, error) {
	groups, err := loadZReports(env, showAll)
	if err != nil {
		return nil, err
	}
	zs, err := lookupRefs(zreport.NewSession(groups, 0, env.cfg.Okotools.FiscalYear), refs)
	if err != nil {
		return nil, err
	}
	if err := zreport.Hide(env.paths.ReportsJSON(), zs, now); err != nil {
		return nil, err
	}
	return zs, nil
}

// zExportOptions are the parsed flags of zreport export.
type zExportOptions struct {
	Refs        []string
	FirstNumber int
	Year        int
	Upload      bool
	Hide        bool
	Encoding    string
	Profile     string
	Force       bool
	ShowAll     bool
}

// zExportResult describes a finished export.
type zExportResult struct {
	BatchID  string
	First    int
	Next     int
	Exported []*zreport.Z
	Uploaded []tripletex.Voucher
	Output   string
}

func runZReportExport(cmd *cobra.Command, args []string) {
	env, err := loadEnvironment()
	exitOnError(err, "Failed to load configuration")

	conn, err := db.Open(env.paths.DatabasePath())
	exitOnError(err, "Failed to open database")
	defer conn.Close()

	opts := zExportOptions{
		Refs:        args,
		FirstNumber: zFirstNumber,
		Year:        zYear,
		Upload:      zUpload,
		Hide:        zHide,
		Encoding:    zEncoding,
		Profile:     zProfile,
		Force:       zForce,
		ShowAll:     zShowAll,
	}

	result, err := exportZReports(cmd.Context(), env, db.NewExportHistory(conn), opts, time.Now())
	exitOnError(err, "Z-report export failed")

	fmt.Println()
	fmt.Println("Z-report export completed")
	for i, z := range result.Exported {
		fmt.Printf("  %d  %s  %s  %s\n", result.First+i, z.ZNr(), z.Date, z.TotalSales().StringFixed(2))
	}
	fmt.Printf("Vouchers written to %s\n", result.Output)
	if opts.Upload {
		fmt.Printf("Uploaded %d vouchers to Tripletex\n", len(result.Uploaded))
	}
	if opts.Hide {
		fmt.Println("Exported reports flagged as imported")
	}
	fmt.Printf("Next voucher number: %d\n", result.Next)
	fmt.Printf("Batch: %s\n", result.BatchID)
}

// exportZReports selects the referenced reports, writes them as one voucher
// file, optionally uploads it and records the batch. Nothing is written when
// any report fails validation.
func exportZReports(ctx context.Context, env *environment, history *db.ExportHistory, opts zExportOptions, now time.Time) (*zExportResult, error) {
	var client *tripletex.Client
	if opts.Upload {
		var err error
		if client, err = env.requireClient(); err != nil {
			return nil, err
		}
	}

	year := opts.Year
	if year == 0 {
		year = env.cfg.Okotools.FiscalYear
	}

	groups, err := loadZReports(env, opts.ShowAll)
	if err != nil {
		return nil, err
	}

	session := zreport.NewSession(groups, 0, year)
	zs, err := lookupRefs(session, opts.Refs)
	if err != nil {
		return nil, err
	}
	for _, z := range zs {
		if err := session.Select(z); err != nil {
			return nil, err
		}
		if z.Date[:4] != strconv.Itoa(year) {
			slog.Warn("report date outside accounting year", "z", z.ZNr(), "date", z.Date, "year", year)
		}
		if opts.Force {
			continue
		}
		exported, err := history.IsExported(ctx, z.SheetID, z.ZNr())
		if err != nil {
			return nil, err
		}
		if exported {
			return nil, fmt.Errorf("%s (sheet %s) was exported before, use --force to export it again", z.ZNr(), z.SheetID)
		}
	}

	if session.NextID, err = firstVoucherNumber(ctx, env, history, opts.FirstNumber, year); err != nil {
		return nil, err
	}

	previous, err := history.NextVoucherNumber(ctx)
	if err != nil {
		return nil, err
	}

	output := env.paths.VoucherOut()
	destination := output
	if opts.Upload {
		destination = destinationUpload
	}
	result := &zExportResult{First: session.NextID, Output: output}

	// The batch is recorded before the upload and removed again if the upload fails.
	result.Exported, err = session.Export(func(first int, zs []*zreport.Z) error {
		var buf bytes.Buffer
		if err := converter.WriteVouchers(&buf, env.mapper, opts.Profile, zs, first, year); err != nil {
			return err
		}
		data, err := converter.Encode(buf.Bytes(), opts.Encoding)
		if err != nil {
			return err
		}

		if err := env.paths.EnsureParentDir(output); err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write vouchers: %w", err)
		}
		slog.Info("wrote voucher file", "path", output, "vouchers", len(zs), "first", first)

		if result.BatchID, err = history.RecordBatch(ctx, exportRecords(zs, first, destination), first+len(zs)); err != nil {
			return err
		}

		if client == nil {
			return nil
		}
		if result.Uploaded, err = client.ImportGBAT10(ctx, data, opts.Encoding); err != nil {
			if delErr := history.DeleteBatch(ctx, result.BatchID, previous); delErr != nil {
				slog.Error("failed to remove batch after failed upload, check Tripletex before exporting again",
					"batch", result.BatchID, "first", first, "vouchers", len(zs), "error", delErr)
			}
			return fmt.Errorf("upload failed, vouchers are in %s: %w", output, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Next = session.NextID

	if opts.Hide {
		if err := zreport.Hide(env.paths.ReportsJSON(), result.Exported, now); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// exportRecords describes zs numbered from first for the export history.
func exportRecords(zs []*zreport.Z, first int, destination string) []db.ExportRecord {
	records := make([]db.ExportRecord, 0, len(zs))
	for i, z := range zs {
		records = append(records, db.ExportRecord{
			SheetID:       z.SheetID,
			JSONIndex:     z.JSONIndex,
			ZNr:           z.ZNr(),
			ReportDate:    z.Date[:4] + "-" + z.Date[4:6] + "-" + z.Date[6:],
			VoucherNumber: first + i,
			GrossTotal:    z.TotalSales(),
			Destination:   destination,
		})
	}
	return records
}

// firstVoucherNumber picks the first voucher number of an export: the flag,
// then Tripletex, then the number stored by the previous export.
func firstVoucherNumber(ctx context.Context, env *environment, history *db.ExportHistory, flag, year int) (int, error) {
	if flag > 0 {
		return flag, nil
	}

	if env.client != nil {
		next, err := env.client.NextVoucherNumber(ctx, year, env.mapper.LedgerSeries())
		if err == nil {
			slog.Debug("next voucher number from tripletex", "next", next)
			return next, nil
		}
		slog.Warn("failed to query next voucher number, using stored number", "error", err)
	}

	next, err := history.NextVoucherNumber(ctx)
	if err != nil {
		return 0, err
	}
	if next == 0 {
		return 0, errNoVoucherNumber
	}
	return next, nil
}
