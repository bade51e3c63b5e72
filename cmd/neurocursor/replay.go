package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/neurocursor/internal/coach"
	"github.com/verte-zerg/neurocursor/internal/config"
	"github.com/verte-zerg/neurocursor/internal/ingest"
	"github.com/verte-zerg/neurocursor/internal/session"
	"github.com/verte-zerg/neurocursor/internal/stats"
	"github.com/verte-zerg/neurocursor/internal/store"
)

var (
	replayInterval time.Duration
	replayArchive  bool
	replayDB       string
	replayPlain    bool
	replayWindow   int
	replayVerbose  bool
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Replay recorded telemetry and print the session report",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplayCmd,
	}
	addEngineFlags(cmd)
	cmd.Flags().DurationVar(&replayInterval, "interval", ingest.DefaultReplayInterval, "spacing of packets without an \"at\" timestamp")
	cmd.Flags().BoolVar(&replayArchive, "archive", false, "archive the replayed session report")
	cmd.Flags().StringVar(&replayDB, "db", config.DefaultDBPath(), "history database path")
	cmd.Flags().BoolVar(&replayPlain, "plain", false, "skip the trend plot")
	cmd.Flags().IntVar(&replayWindow, "window", defaultTrendWindow, "moving average window for the trend plot")
	cmd.Flags().BoolVar(&replayVerbose, "verbose", false, "log engine events to stderr")
	return cmd
}

// trendRecorder collects per-sample scores for the trend plot.
type trendRecorder struct {
	mu     sync.Mutex
	focus  []float64
	stress []float64
	spoken int
	resets int
}

func (r *trendRecorder) observe(ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch ev.Kind {
	case session.EventSample:
		r.focus = append(r.focus, ev.Scores.FocusScore)
		r.stress = append(r.stress, ev.Scores.StressScore)
	case session.EventSpoke:
		r.spoken++
	case session.EventResetStarted:
		r.resets++
	}
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyEngineConfig(cmd, fileCfg); err != nil {
		return err
	}
	applyStringConfig(cmd, "db", &replayDB, fileCfg.History.DB)
	cfg := engineOpts.sessionConfig()
	if err := validateEngineConfig(cfg); err != nil {
		return err
	}
	if replayInterval <= 0 {
		return fmt.Errorf("--interval must be > 0")
	}
	if replayWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}

	data, err := readReplayInput(args[0])
	if err != nil {
		return err
	}
	start := firstTimestamp(data, time.Now())

	logOut := io.Discard
	if replayVerbose {
		logOut = os.Stderr
	}
	logger := newLogger(logOut, replayVerbose)

	deps := session.Deps{Logger: logger, Chooser: coach.NewRandom(engineOpts.seed)}
	if replayArchive {
		st, err := store.Open(replayDB)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		deps.Archiver = st
	}

	engine := session.New(cfg, deps, start)
	engine.Subscribe(logEvents(logger))
	rec := &trendRecorder{}
	engine.Subscribe(rec.observe)

	res, err := ingest.Run(cmd.Context(), bytes.NewReader(data), engine, ingest.Options{
		Logger:   logger,
		Replay:   true,
		Start:    start,
		Interval: replayInterval,
	})
	if err != nil {
		return err
	}
	if res.Packets == 0 {
		return fmt.Errorf("no telemetry packets in %s", args[0])
	}
	end := res.Last
	engine.Advance(end)

	out := cmd.OutOrStdout()
	report := engine.Report(end)
	if _, err := fmt.Fprintln(out, colorizeSummary(report.FormattedSummary, report.Profile)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	rec.mu.Lock()
	focus, stress, spoken, resets := rec.focus, rec.stress, rec.spoken, rec.resets
	rec.mu.Unlock()
	if _, err := fmt.Fprintf(out, "\nPackets: %d (skipped %d)  Coach lines: %d  Guided resets: %d\n", res.Packets, res.Skipped, spoken, resets); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !replayPlain {
		if _, err := fmt.Fprintln(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderTrend(out, focus, stress, replayWindow, 0, defaultPlotHeight, isTerminal(os.Stdout)); err != nil {
			return fmt.Errorf("failed to render trend: %w", err)
		}
	}

	if replayArchive {
		archived, err := engine.Archive(context.Background(), end)
		if err != nil {
			return fmt.Errorf("failed to archive session: %w", err)
		}
		if archived != nil {
			logErrf("Archived session %s\n", archived.ID)
		}
	}
	return nil
}

func readReplayInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// firstTimestamp returns the "at" of the first decodable packet, or fallback
// when the recording carries no timestamps.
func firstTimestamp(data []byte, fallback time.Time) time.Time {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p, err := ingest.Decode(scanner.Bytes())
		if err != nil {
			continue
		}
		if p.At != nil {
			return *p.At
		}
		return fallback
	}
	return fallback
}
