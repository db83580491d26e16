// Package cmd provides CLI commands for okotools.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cybernetisk/okotools/pkg/config"
	"github.com/cybernetisk/okotools/pkg/converter"
	"github.com/cybernetisk/okotools/pkg/pathutil"
	"github.com/cybernetisk/okotools/pkg/reports"
	"github.com/cybernetisk/okotools/pkg/tripletex"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "okotools",
	Short: "Accounting tools for the student society's bookkeeping",
	Long: `okotools moves accounting data between the cash register reports,
the Tripletex ledger and the budget spreadsheets.

It supports:
- Exporting the ledger as an aggregated month/department/project/account report
- Converting cash register Z-reports into GBAT10 voucher files
- Uploading voucher files to Tripletex
- Semester reports from legacy Mamut exports

Example:
  okotools ledger export --from 2024-01-01 --to 2024-12-31
  okotools zreport list
  okotools zreport export 3 4:1 --upload --hide
  okotools stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(zreportCmd)
	rootCmd.AddCommand(statsCmd)
}

// environment bundles what the commands need from configuration.
type environment struct {
	cfg    *config.Config
	paths  *pathutil.PathResolver
	repo   reports.Repository
	mapper *converter.Mapper
	client *tripletex.Client // nil without API credentials
}

// loadEnvironment reads the configuration and builds the shared components.
func loadEnvironment() (*environment, error) {
	cfg, err := config.Load(getConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Debug && !debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	paths := pathutil.New(pathutil.Config{
		Root:         cfg.Okotools.Root,
		ReportsJSON:  cfg.Okotools.ReportsJSON,
		VoucherOut:   cfg.Okotools.VoucherOut,
		DatabasePath: cfg.Okotools.DBPath,
	})

	mapper := converter.DefaultMapper()
	if cfg.Okotools.MappingPath != "" {
		if mapper, err = converter.NewMapper(cfg.Okotools.MappingPath); err != nil {
			return nil, err
		}
	}

	env := &environment{
		cfg:    cfg,
		paths:  paths,
		repo:   reports.NewFileSystemRepository(paths),
		mapper: mapper,
	}

	if cfg.Tripletex.ConsumerToken != "" && cfg.Tripletex.EmployeeToken != "" {
		env.client = tripletex.NewClient(tripletex.ClientConfig{
			APIURL:        cfg.Tripletex.APIURL,
			ConsumerToken: cfg.Tripletex.ConsumerToken,
			EmployeeToken: cfg.Tripletex.EmployeeToken,
			CompanyID:     cfg.Tripletex.CompanyID,
			TokenLifetime: cfg.Tripletex.TokenLifetime(),
		})
	}

	slog.Debug("configuration loaded",
		"root", paths.Root(),
		"reports_json", paths.ReportsJSON(),
		"api_url", cfg.Tripletex.APIURL,
		"api_configured", env.client != nil,
	)
	return env, nil
}

// requireClient returns the API client or the configuration error explaining
// why there is none.
func (e *environment) requireClient() (*tripletex.Client, error) {
	if e.client != nil {
		return e.client, nil
	}
	if err := e.cfg.Validate("tripletex.apiUrl", "tripletex.consumerToken", "tripletex.employeeToken"); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: tripletex", config.ErrMissingConfig)
}

// getConfigFile returns the config file path from the --config flag.
func getConfigFile() string {
	return cfgFile
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
