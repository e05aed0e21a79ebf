package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/gw/contrarian-trader/internal/ledger"
)

func main() {
	dbPath := flag.String("db", "data/trades.db", "path to the ledger database")
	flag.Usage = usage
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "position":
		runPosition(*dbPath)
	case "metrics":
		runMetrics(*dbPath)
	case "history":
		limit := 50
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil {
				limit = n
			}
		}
		runHistory(*dbPath, limit)
	case "summary":
		runSummary(*dbPath)
	case "check":
		runCheck(*dbPath)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: ledger [-db path] <command>

Commands:
  position      Show the currently open position
  metrics       Show aggregate performance statistics
  history [N]   Show last N ledger rows (default 50)
  summary       Print the full dashboard summary as JSON
  check         Validate the ledger (SELL rows without an antecedent BUY)`)
}

func openStore(path string, opts ...ledger.Option) *ledger.Store {
	store, err := ledger.Open(path, opts...)
	if err != nil {
		slog.Error("opening db", "err", err)
		os.Exit(1)
	}
	return store
}

func runPosition(path string) {
	store := openStore(path)
	defer store.Close()

	pos, err := store.CurrentPosition(context.Background())
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}
	if pos == nil {
		fmt.Println("No open position.")
		return
	}

	fmt.Printf("%s (%s)\n", pos.InstrumentName, pos.InstrumentCode)
	fmt.Printf("  quantity:   %d\n", pos.Quantity)
	fmt.Printf("  buy price:  %s\n", pos.BuyPrice)
	fmt.Printf("  buy amount: %s\n", pos.BuyAmount)
	fmt.Printf("  opened:     %s (seq %d)\n", pos.BuyAt.Format("2006-01-02 15:04:05"), pos.BuySeq)
}

func runMetrics(path string) {
	store := openStore(path)
	defer store.Close()

	m, err := store.PerformanceMetrics(context.Background())
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}

	fmt.Printf("%-22s %d\n", "Closed trades:", m.TotalTrades)
	fmt.Printf("%-22s %d\n", "Winning:", m.WinningTrades)
	fmt.Printf("%-22s %d\n", "Losing:", m.LosingTrades)
	fmt.Printf("%-22s %s%%\n", "Win rate:", m.WinRate.StringFixed(1))
	fmt.Printf("%-22s %s%%\n", "Cumulative return:", m.CumulativeReturn.StringFixed(2))
	fmt.Printf("%-22s %s%%\n", "Avg return per trade:", m.AvgReturnPerTrade.StringFixed(2))
}

func runHistory(path string, limit int) {
	store := openStore(path)
	defer store.Close()

	records, err := store.Recent(context.Background(), limit)
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("Ledger is empty.")
		return
	}

	fmt.Printf("%5s %-20s %-8s %-4s %-14s %8s %10s %12s %10s\n",
		"Seq", "Time", "Stance", "Type", "Instrument", "Qty", "Price", "Balance", "Return")
	fmt.Println("--------------------------------------------------------------------------------------------------")
	for _, r := range records {
		tradeType := string(r.TradeType)
		if tradeType == "" {
			tradeType = "-"
		}
		fmt.Printf("%5d %-20s %-8s %-4s %-14s %8d %10s %12s %9s%%\n",
			r.Seq,
			r.AnalyzedAt.Format("2006-01-02 15:04:05"),
			r.Sentiment,
			tradeType,
			r.InstrumentName,
			r.Quantity,
			r.UnitPrice,
			r.RunningBalance,
			r.RunningReturnPct.StringFixed(2),
		)
	}
}

func runSummary(path string) {
	store := openStore(path)
	defer store.Close()

	sum, err := store.Summary(context.Background())
	if err != nil {
		slog.Error("query failed", "err", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sum); err != nil {
		slog.Error("encoding summary", "err", err)
		os.Exit(1)
	}
}

func runCheck(path string) {
	store := openStore(path, ledger.Strict(true))
	defer store.Close()

	_, err := store.CurrentPosition(context.Background())
	if errors.Is(err, ledger.ErrInconsistentLedger) {
		fmt.Printf("INCONSISTENT: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("check failed", "err", err)
		os.Exit(1)
	}
	fmt.Println("Ledger is consistent.")
}
