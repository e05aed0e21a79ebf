// backfill replays archived analysis events through the strategy engine to
// rebuild a ledger database, e.g. after a schema change or a lost DB file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gw/contrarian-trader/internal/archive"
	"github.com/gw/contrarian-trader/internal/config"
	"github.com/gw/contrarian-trader/internal/ledger"
	"github.com/gw/contrarian-trader/internal/quote"
	"github.com/gw/contrarian-trader/internal/strategy"
)

var (
	dbPath     = flag.String("db", "data/trades-rebuilt.db", "target ledger database (must not be the live DB)")
	configPath = flag.String("config", "", "path to YAML strategy config")
	dryRun     = flag.Bool("dry-run", false, "parse and report without writing")
)

func main() {
	flag.Parse()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: backfill [--db path] [--config path] [--dry-run] <jsonl-file-patterns...>")
		os.Exit(1)
	}

	cfg, err := config.LoadStrategy(*configPath)
	if err != nil {
		slog.Error("strategy config error", "err", err)
		os.Exit(1)
	}

	events, err := loadEvents(flag.Args())
	if err != nil {
		slog.Error("loading archive files", "err", err)
		os.Exit(1)
	}
	slog.Info("archive loaded", "events", len(events))

	if *dryRun {
		for _, e := range events {
			fmt.Printf("%s  %-8s target=%s skipped=%v\n", e.Ts, e.Sentiment, e.Target, e.Skipped)
		}
		return
	}

	store, err := ledger.Open(*dbPath)
	if err != nil {
		slog.Error("opening target db", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	engine := strategy.New(store, quote.NewFixed(), strategy.Params{
		InitialCapital: decimal.NewFromInt(cfg.InitialCapital),
		PositionSize:   decimal.NewFromInt(cfg.PositionSize),
	})

	ctx := context.Background()
	replayed, skipped := 0, 0
	for _, e := range events {
		if e.Skipped {
			skipped++
			continue
		}

		analyzedAt, _ := time.Parse(time.RFC3339Nano, e.Ts)
		sig := strategy.Signal{
			SourceRef:   e.VideoID,
			SourceTitle: e.VideoTitle,
			SourceURL:   e.VideoURL,
			AnalyzedAt:  analyzedAt,
			Sentiment:   ledger.Sentiment(e.Sentiment),
			Reasoning:   e.Reasoning,
			TargetCode:  e.Target,
			TargetName:  e.TargetName,
		}
		if _, err := engine.Apply(ctx, sig); err != nil {
			slog.Error("replay failed", "video", e.VideoID, "err", err)
			os.Exit(1)
		}
		replayed++
	}

	slog.Info("backfill complete", "replayed", replayed, "skipped", skipped, "db", *dbPath)
}

// loadEvents reads every matching JSONL file and returns the events in
// timestamp order, which reproduces the original append order.
func loadEvents(patterns []string) ([]archive.Event, error) {
	var events []archive.Event
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			slog.Warn("pattern matched no files", "pattern", pattern)
		}
		for _, path := range matches {
			fileEvents, err := readFile(path)
			if err != nil {
				return nil, err
			}
			events = append(events, fileEvents...)
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Ts < events[j].Ts })
	return events, nil
}

func readFile(path string) ([]archive.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var events []archive.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e archive.Event
		if err := json.Unmarshal(line, &e); err != nil {
			slog.Warn("skipping malformed line", "file", path, "err", err)
			continue
		}
		if e.Type != "analysis" {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return events, nil
}
