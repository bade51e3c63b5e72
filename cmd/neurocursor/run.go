package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/neurocursor/internal/coach"
	"github.com/verte-zerg/neurocursor/internal/config"
	"github.com/verte-zerg/neurocursor/internal/ingest"
	"github.com/verte-zerg/neurocursor/internal/metrics"
	"github.com/verte-zerg/neurocursor/internal/server"
	"github.com/verte-zerg/neurocursor/internal/session"
	"github.com/verte-zerg/neurocursor/internal/speech"
	"github.com/verte-zerg/neurocursor/internal/store"
	"github.com/verte-zerg/neurocursor/internal/tui"
)

const advanceInterval = time.Second

type runOptions struct {
	Engine         session.Config
	Seed           int64
	Muted          bool
	SpeechCommand  string
	SpeechArgs     []string
	Listen         string
	CalibrationURL string
	Archive        bool
	DBPath         string
	Input          string
	Dashboard      bool
	Debug          bool
}

func runLiveCmd(cmd *cobra.Command, _ []string) error {
	configPath := config.DefaultConfigPath()
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyEngineConfig(cmd, fileCfg); err != nil {
		return err
	}
	applyBoolConfig(cmd, "muted", &runMuted, fileCfg.Speech.Muted)
	applyStringConfig(cmd, "speech-command", &runSpeechCommand, fileCfg.Speech.Command)
	applyStringConfig(cmd, "listen", &runListen, fileCfg.Server.Listen)
	applyStringConfig(cmd, "calibration-url", &runCalibrationURL, fileCfg.Server.CalibrationURL)
	applyBoolConfig(cmd, "archive", &runArchive, fileCfg.History.Archive)
	applyStringConfig(cmd, "db", &runDB, fileCfg.History.DB)

	opts := runOptions{
		Engine:         engineOpts.sessionConfig(),
		Seed:           engineOpts.seed,
		Muted:          runMuted,
		SpeechCommand:  runSpeechCommand,
		SpeechArgs:     fileCfg.Speech.Args,
		Listen:         runListen,
		CalibrationURL: runCalibrationURL,
		Archive:        runArchive,
		DBPath:         runDB,
		Input:          runInput,
		Dashboard:      !runNoTUI && isTerminal(os.Stdout),
		Debug:          runDebug,
	}
	if err := validateRunOptions(opts); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The dashboard owns the terminal, so logs go to a file while it runs.
	var logOut io.Writer = os.Stderr
	if opts.Dashboard {
		logFile, err := openLogFile(config.DefaultLogPath())
		if err != nil {
			return err
		}
		defer func() {
			if cerr := logFile.Close(); cerr != nil {
				// Best-effort close of the log file.
				_ = cerr
			}
		}()
		logOut = logFile
	}
	logger := newLogger(logOut, opts.Debug)

	return runLive(ctx, opts, configPath, logger, logOut, cmd.Flags().Changed("muted"))
}

func validateRunOptions(opts runOptions) error {
	if err := validateEngineConfig(opts.Engine); err != nil {
		return err
	}
	if err := validateCalibrationURL(opts.CalibrationURL); err != nil {
		return err
	}
	if opts.Archive && opts.DBPath == "" {
		return fmt.Errorf("--db must not be empty when archiving")
	}
	if opts.Input == "" && opts.Listen == "" {
		return fmt.Errorf("--input and --listen must not both be empty")
	}
	return nil
}

func runLive(ctx context.Context, opts runOptions, configPath string, logger *slog.Logger, accessLog io.Writer, muteFromFlag bool) error {
	deps := session.Deps{
		Logger:  logger,
		Chooser: coach.NewRandom(opts.Seed),
	}

	var speaker speech.Speaker
	if opts.SpeechCommand != "" {
		cs := speech.NewCommandSpeaker(opts.SpeechCommand, opts.SpeechArgs)
		defer func() {
			if cerr := cs.Close(); cerr != nil {
				logger.Warn("failed to stop speech command", "error", cerr)
			}
		}()
		speaker = cs
	}
	deps.Voice = speech.NewVoice(speaker, logger)
	deps.Voice.SetMuted(opts.Muted)

	if opts.Archive {
		st, err := store.Open(opts.DBPath)
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
	if opts.CalibrationURL != "" {
		deps.Calibrator = server.NewHTTPCalibrator(opts.CalibrationURL)
	}

	engine := session.New(opts.Engine, deps, time.Now())
	engine.Subscribe(logEvents(logger))
	m := metrics.New(engine)
	engine.Subscribe(m.Observe)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	readStdin := opts.Input == "-"
	if opts.Input != "" && !(readStdin && opts.Dashboard && isTerminal(os.Stdin)) {
		g.Go(func() error {
			err := readTelemetry(gctx, opts.Input, engine, logger)
			// Without a server there is nothing left to serve once the input ends.
			if opts.Listen == "" && !opts.Dashboard {
				cancel()
			}
			return err
		})
	} else if opts.Input != "" {
		logger.Info("stdin is the terminal; expecting telemetry over HTTP", "listen", opts.Listen)
	}

	if opts.Listen != "" {
		srv := server.New(engine, server.Options{Metrics: m, Logger: logger, AccessLog: accessLog})
		g.Go(func() error {
			return srv.ListenAndServe(gctx, opts.Listen)
		})
	}

	g.Go(func() error {
		err := config.Watch(gctx, configPath, logger, func(fc config.FileConfig) {
			if muteFromFlag || fc.Speech.Muted == nil {
				return
			}
			if *fc.Speech.Muted != engine.State(time.Now()).Muted {
				engine.SetMuted(*fc.Speech.Muted, time.Now())
			}
		})
		if err != nil {
			logger.Warn("config watch disabled", "error", err)
		}
		return nil
	})

	if opts.Dashboard {
		relay := tui.NewRelay(tui.DefaultRelaySize)
		engine.Subscribe(relay.Listener())
		g.Go(func() error {
			defer cancel()
			return runDashboard(gctx, engine, relay, readStdin && !isTerminal(os.Stdin))
		})
	} else {
		g.Go(func() error {
			ticker := time.NewTicker(advanceInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case now := <-ticker.C:
					engine.Advance(now)
				}
			}
		})
	}

	err := g.Wait()

	end := time.Now()
	if opts.Archive {
		archived, aerr := engine.Archive(context.Background(), end)
		switch {
		case aerr != nil:
			logErrf("failed to archive session: %v\n", aerr)
		case archived != nil:
			logErrf("Archived session %s (score %d)\n", archived.ID, archived.Score)
		}
	}
	if !opts.Dashboard {
		report := engine.Report(end)
		if _, werr := fmt.Fprintln(os.Stdout, colorizeSummary(report.FormattedSummary, report.Profile)); werr != nil {
			logErrf("failed to write report: %v\n", werr)
		}
	}
	return err
}

func readTelemetry(ctx context.Context, input string, sink ingest.Sink, logger *slog.Logger) error {
	r, closeFn, err := openInput(input)
	if err != nil {
		return err
	}
	defer closeFn()
	res, err := ingest.Run(ctx, r, sink, ingest.Options{Logger: logger})
	logger.Info("telemetry input ended", "packets", res.Packets, "skipped", res.Skipped)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openInput(input string) (io.Reader, func(), error) {
	if input == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open telemetry input: %w", err)
	}
	return f, func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of the input.
			_ = cerr
		}
	}, nil
}

func runDashboard(ctx context.Context, engine *session.Engine, relay *tui.Relay, ttyInput bool) error {
	model := tui.NewModel(engine, tui.Options{Relay: relay})
	programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if ttyInput {
		// Telemetry arrives on stdin, so keys are read from the terminal device.
		programOpts = append(programOpts, tea.WithInputTTY())
	}
	program := tea.NewProgram(model, programOpts...)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
