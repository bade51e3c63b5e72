package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultReplayInterval spaces replayed packets that carry no timestamp.
const DefaultReplayInterval = 250 * time.Millisecond

const maxLineSize = 1 << 20

// Options control how a stream is read.
type Options struct {
	Logger *slog.Logger
	// Clock stamps live packets. Defaults to time.Now.
	Clock func() time.Time
	// Replay stamps packets with their own "at" field instead of the clock.
	Replay bool
	// Start is the timestamp of the first replayed packet without "at".
	Start time.Time
	// Interval spaces replayed packets without "at".
	Interval time.Duration
}

// Result summarizes a finished stream.
type Result struct {
	Lines   int
	Packets int
	Skipped int
	First   time.Time
	Last    time.Time
}

// Run reads newline-delimited packets from r until EOF or ctx is done. Lines
// that fail to decode are logged and skipped.
func Run(ctx context.Context, r io.Reader, sink Sink, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultReplayInterval
	}

	lines := make(chan []byte)
	errc := make(chan error, 1)
	// A Scan blocked on stdin cannot be interrupted; after cancellation this
	// goroutine stays parked until the read returns or the process exits.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	var res Result
	var cursor time.Time
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-errc:
				default:
				}
				if err != nil {
					return res, fmt.Errorf("failed to read telemetry: %w", err)
				}
				return res, nil
			}
			res.Lines++
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			p, err := Decode(line)
			if err != nil {
				res.Skipped++
				logger.Warn("skipping telemetry line", "line", res.Lines, "error", err)
				continue
			}

			now := clock()
			if opts.Replay {
				switch {
				case p.At != nil:
					now = *p.At
				case cursor.IsZero() && !opts.Start.IsZero():
					now = opts.Start
				case cursor.IsZero():
					now = clock()
				default:
					now = cursor.Add(interval)
				}
				cursor = now
			}

			Apply(p, sink, now)
			res.Packets++
			if res.First.IsZero() {
				res.First = now
			}
			res.Last = now
		}
	}
}
