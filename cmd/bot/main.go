package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/gw/contrarian-trader/internal/archive"
	"github.com/gw/contrarian-trader/internal/bot"
	"github.com/gw/contrarian-trader/internal/config"
	"github.com/gw/contrarian-trader/internal/dashboard"
	"github.com/gw/contrarian-trader/internal/ledger"
	"github.com/gw/contrarian-trader/internal/notify"
	"github.com/gw/contrarian-trader/internal/quote"
	"github.com/gw/contrarian-trader/internal/rss"
	"github.com/gw/contrarian-trader/internal/sentiment"
	"github.com/gw/contrarian-trader/internal/strategy"
	"github.com/gw/contrarian-trader/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "path to YAML strategy config")
	videoURL := flag.String("video-url", "", "test mode: process one video URL and exit")
	noTelegram := flag.Bool("no-telegram", false, "disable Telegram notifications")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("env config error", "err", err)
		os.Exit(1)
	}
	cfg, err := config.LoadStrategy(*configPath)
	if err != nil {
		slog.Error("strategy config error", "err", err)
		os.Exit(1)
	}

	slog.Info("contrarian bot starting",
		"channel", cfg.ChannelID,
		"db", cfg.DBPath,
		"poll_mins", cfg.PollIntervalMins,
	)

	var opts []ledger.Option
	if cfg.StrictLedger {
		opts = append(opts, ledger.Strict(true))
	}
	store, err := ledger.Open(cfg.DBPath, opts...)
	if err != nil {
		slog.Error("opening ledger", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	arch, err := archive.NewWriter(cfg.ArchiveDir, "analysis")
	if err != nil {
		slog.Error("opening archive", "err", err)
		os.Exit(1)
	}
	defer arch.Close()

	engine := strategy.New(store, quote.NewFixed(), strategy.Params{
		InitialCapital: decimal.NewFromInt(cfg.InitialCapital),
		PositionSize:   decimal.NewFromInt(cfg.PositionSize),
	})

	classifier := sentiment.NewOpenAIClassifier(
		env.OpenAIAPIKey, env.OpenAIModel,
		cfg.Primary.Code, cfg.Primary.Name,
		cfg.Inverse.Code, cfg.Inverse.Name,
	)

	token, chatID := env.TelegramBotToken, env.TelegramChatID
	if *noTelegram {
		token, chatID = "", ""
	}
	notifier := notify.NewTelegram(token, chatID)

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	var dash *dashboard.Server
	if cfg.DashboardAddr != "" {
		dash = dashboard.New(store)
		srv := &http.Server{Addr: cfg.DashboardAddr, Handler: dash.Handler()}
		go func() {
			slog.Info("dashboard listening", "addr", cfg.DashboardAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("dashboard server failed", "err", err)
			}
		}()
		defer srv.Close()
	}

	b := bot.New(
		cfg,
		rss.NewClient(cfg.ChannelID),
		rss.NewHistory(cfg.HistoryFile),
		transcribe.NewYTDLP("data/audio"),
		transcribe.NewWhisper(env.OpenAIAPIKey, "ko"),
		classifier,
		engine,
		notifier,
		arch,
		dash,
	)

	if *videoURL != "" {
		if err := b.ProcessVideo(ctx, rss.Video{
			ID:    videoID(*videoURL),
			Title: "Manual run",
			URL:   *videoURL,
		}); err != nil {
			slog.Error("video processing failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}

// videoID extracts the id from a watch URL, falling back to the URL tail.
func videoID(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		switch url[i] {
		case '=', '/':
			return url[i+1:]
		}
	}
	return url
}
