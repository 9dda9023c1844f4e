package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"HypeRadar/internal/domain/models"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one refresh cycle and print the scores",
	Long: `Run a single refresh cycle against the configured watchlist, persist the
results like a scheduled cycle would, and print the report.

Examples:
  hyperadar scan
  hyperadar scan --format json
  hyperadar scan -c config/config.yaml`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "output format: table or json")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("unknown format %q", scanFormat)
	}
	app, cfg, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Cycle.LockTTL)
	defer cancel()

	report, err := app.RunOnce(ctx)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), report, scanFormat)
}

// writeReport prints scores highest first, then critical tickers and
// persistence errors.
func writeReport(w io.Writer, r *models.CycleReport, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	scores := append([]*models.SignalScore(nil), r.Scores...)
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].AlertScore > scores[j].AlertScore })

	fmt.Fprintf(w, "cycle %s (%s)\n\n", r.CycleID, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tSCORE\tLEVEL\tOPTIONS\tVOLUME\tSOCIAL\tTRIGGERED\tPRICE\tMISSING")
	for _, s := range scores {
		missing := "-"
		if len(s.MissingSignals) > 0 {
			missing = strings.Join(s.MissingSignals, ",")
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%.1f\t%.1f\t%.1f\t%d\t%.2f\t%s\n",
			s.Ticker, s.AlertScore, s.AlertLevel, s.OptionsScore, s.VolumeScore, s.SocialScore,
			s.SignalsTriggered, s.CurrentPrice, missing)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Critical) > 0 {
		fmt.Fprintf(w, "\ncritical: %s\n", strings.Join(r.Critical, ", "))
	}
	if len(r.Errors) > 0 {
		tickers := make([]string, 0, len(r.Errors))
		for t := range r.Errors {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		fmt.Fprintln(w, "\nerrors:")
		for _, t := range tickers {
			fmt.Fprintf(w, "  %s: %s\n", t, r.Errors[t])
		}
	}
	return nil
}
