package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/neurocursor/internal/config"
	"github.com/verte-zerg/neurocursor/internal/historyui"
	"github.com/verte-zerg/neurocursor/internal/model"
	"github.com/verte-zerg/neurocursor/internal/stats"
	"github.com/verte-zerg/neurocursor/internal/store"
)

var (
	historySince  string
	historyLast   int
	historyWindow int
	historyPlain  bool
	historyDB     string
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived session reports",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyWindow, "window", defaultTrendWindow, "moving average window")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print plain text instead of the interactive browser")
	cmd.Flags().StringVar(&historyDB, "db", config.DefaultDBPath(), "history database path")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &historyDB, fileCfg.History.DB)

	filter, err := parseHistoryFilter(historySince, historyLast)
	if err != nil {
		return err
	}
	if historyWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}

	st, err := store.Open(historyDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyPlain || !isTerminal(os.Stdout) {
		reports, err := st.ListReports(context.Background(), filter)
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}
		width := 0
		if isTerminal(os.Stdout) {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = w
			}
		}
		return printHistory(cmd.OutOrStdout(), reports, historyWindow, width)
	}

	ui := historyui.NewModel(st, historyui.Config{Filter: filter, Window: historyWindow})
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func parseHistoryFilter(since string, last int) (model.HistoryFilter, error) {
	var filter model.HistoryFilter
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if last < 0 {
		return filter, fmt.Errorf("--last must be >= 0")
	}
	filter.Last = last
	return filter, nil
}

// printHistory writes the summary, the session table with colored profiles
// and, when width is known, the trend plot.
func printHistory(w io.Writer, reports []model.ArchivedReport, window, width int) error {
	if err := stats.RenderHistorySummary(w, reports); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(reports) == 0 {
		return nil
	}
	if err := stats.RenderHistoryTable(w, reports); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	latest := reports[len(reports)-1]
	line := fmt.Sprintf("Latest: %s (%d/100)", latest.Profile.Label(), latest.Score)
	if _, err := fmt.Fprintf(w, "\n%s\n", profileColor(latest.Profile).Sprint(line)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if width <= 0 || len(reports) < 2 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderHistoryTrend(w, reports, window, width, defaultPlotHeight, false); err != nil {
		return fmt.Errorf("failed to render trend: %w", err)
	}
	return nil
}
