package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rangescope/internal/config"
	"rangescope/internal/pipeline"
	"rangescope/internal/report"
	"rangescope/internal/resultdb"
)

var (
	cfgFile   string
	format    string
	verbose   bool
	outputDir string
	dbPath    string
	noChart   bool
	sample    int
	limit     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rangescope",
		Short: "Rank news sources by how well their Nifty 50 ranges matched the market",
		Long: `Rangescope compares the daily support/resistance ranges published by news
sources against the actual Nifty 50 low/high and picks the best source per day.

Commands:
  compare  - Score every source and write the comparison reports (default)
  audit    - Check the input files for weekend and holiday dates
  runs     - List runs stored in the results database

Examples:
  rangescope --config config.yaml
  rangescope compare --output reports --db results.db
  rangescope audit --sample 5`,
		RunE:          runCompare,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "show detailed output")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite results database (overrides config)")

	addCompareFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&outputDir, "output", "", "report output directory (overrides config)")
		cmd.Flags().BoolVar(&noChart, "no-chart", false, "skip the PDF chart")
	}
	addCompareFlags(rootCmd)

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Score every source and write the comparison reports",
		RunE:  runCompare,
	}
	addCompareFlags(compareCmd)

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Check input files for weekend and holiday dates",
		RunE:  runAudit,
	}
	auditCmd.Flags().IntVar(&sample, "sample", 10, "non-trading dates to list per file")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs stored in the results database",
		RunE:  runRuns,
	}
	runsCmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	rootCmd.AddCommand(compareCmd, auditCmd, runsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Override config with CLI flags
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if dbPath != "" {
		cfg.Output.Database = dbPath
	}
	if noChart {
		cfg.Output.Chart = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// signalContext cancels on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted. Stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	bar := newProgressBar(len(cfg.Sources), "Loading sources")
	p.SetProgressCallback(func(done, total int) {
		bar.Set(done)
	})

	result, err := p.Run(ctx)
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	paths, err := report.WriteCSV(cfg.Output.Dir, result)
	if err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}
	if cfg.Output.Chart {
		chart, err := report.WriteChart(cfg.Output.Dir, result)
		if err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
		paths = append(paths, chart)
	}
	logger.WithField("files", len(paths)).Info("reports written")

	if cfg.Output.Database != "" {
		store, err := resultdb.Open(cfg.Output.Database, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(result); err != nil {
			return err
		}
	}

	if format == "json" {
		return report.WriteJSON(os.Stdout, result)
	}

	if err := report.PrintSummary(os.Stdout, result); err != nil {
		return err
	}
	if err := report.PrintBacktest(os.Stdout, result); err != nil {
		return err
	}

	fmt.Println("\n--- Files ---")
	for _, path := range paths {
		fmt.Printf("  %s\n", path)
	}
	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, newLogger())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	reports, err := p.Audit(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		return report.WriteJSON(os.Stdout, reports)
	}
	return report.PrintAudit(os.Stdout, reports, sample)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Output.Database == "" {
		return fmt.Errorf("no results database configured, set --db or output.database")
	}

	store, err := resultdb.Open(cfg.Output.Database, newLogger())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(limit)
	if err != nil {
		return err
	}

	if format == "json" {
		return report.WriteJSON(os.Stdout, runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs stored yet.")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Run", "Started", "Quotes", "Predictions", "Dates", "Within", "Issues", "Elapsed"}),
	)
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Quotes),
			strconv.Itoa(r.Predictions),
			strconv.Itoa(r.Dates),
			strconv.Itoa(r.WithinDays),
			strconv.Itoa(r.Issues),
			(time.Duration(r.ElapsedMillis) * time.Millisecond).String(),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	latest, summaries, err := store.LatestSummaries()
	if err != nil || latest == nil {
		return err
	}
	fmt.Printf("\nLatest run %s:\n", latest.ID)
	summary := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Source", "Wins", "Win %", "Within %", "Avg Dist"}),
	)
	for _, s := range summaries {
		summary.Append([]string{
			s.SourceID,
			strconv.Itoa(s.WinCount),
			fmt.Sprintf("%.1f%%", s.WinPercentage),
			fmt.Sprintf("%.1f%%", s.WithinRangePercentage),
			fmt.Sprintf("%.2f", s.AverageDistance),
		})
	}
	return summary.Render()
}
