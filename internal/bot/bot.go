// Package bot wires the decision pipeline together: poll the channel feed,
// transcribe and classify new videos, apply the contrarian strategy, then
// notify and archive. One video is processed at a time, which keeps the
// append-then-derive cycles on the ledger serialized.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gw/contrarian-trader/internal/archive"
	"github.com/gw/contrarian-trader/internal/config"
	"github.com/gw/contrarian-trader/internal/dashboard"
	"github.com/gw/contrarian-trader/internal/ledger"
	"github.com/gw/contrarian-trader/internal/notify"
	"github.com/gw/contrarian-trader/internal/rss"
	"github.com/gw/contrarian-trader/internal/sentiment"
	"github.com/gw/contrarian-trader/internal/strategy"
	"github.com/gw/contrarian-trader/internal/transcribe"
)

type Bot struct {
	cfg         *config.Strategy
	feed        *rss.Client
	history     *rss.History
	fetcher     transcribe.AudioFetcher
	transcriber transcribe.Transcriber
	classifier  sentiment.Classifier
	engine      *strategy.Engine
	notifier    *notify.Telegram
	archive     *archive.Writer
	dash        *dashboard.Server // nil when the dashboard is disabled
}

func New(
	cfg *config.Strategy,
	feed *rss.Client,
	history *rss.History,
	fetcher transcribe.AudioFetcher,
	transcriber transcribe.Transcriber,
	classifier sentiment.Classifier,
	engine *strategy.Engine,
	notifier *notify.Telegram,
	arch *archive.Writer,
	dash *dashboard.Server,
) *Bot {
	return &Bot{
		cfg:         cfg,
		feed:        feed,
		history:     history,
		fetcher:     fetcher,
		transcriber: transcriber,
		classifier:  classifier,
		engine:      engine,
		notifier:    notifier,
		archive:     arch,
		dash:        dash,
	}
}

// Run polls once immediately, then on every tick until the context ends.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Poll(ctx); err != nil {
		slog.Error("poll failed", "err", err)
	}

	ticker := time.NewTicker(time.Duration(b.cfg.PollIntervalMins) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.Poll(ctx); err != nil {
				slog.Error("poll failed", "err", err)
			}
		}
	}
}

// Poll fetches the feed, processes every not-yet-seen video, and persists
// the updated history. The first run only seeds the history so the bot
// does not trade on the channel's entire backlog.
func (b *Bot) Poll(ctx context.Context) error {
	current, err := b.feed.Latest(ctx)
	if err != nil {
		return err
	}
	if len(current) == 0 {
		slog.Warn("feed returned no videos")
		return nil
	}

	previous, err := b.history.Load()
	if err != nil {
		return err
	}

	if len(previous) == 0 {
		slog.Info("first run, seeding video history", "videos", len(current))
		return b.history.Save(current)
	}

	fresh := rss.NewSince(current, previous)
	slog.Info("feed polled", "videos", len(current), "new", len(fresh))

	for _, video := range fresh {
		if err := b.ProcessVideo(ctx, video); err != nil {
			slog.Error("video processing failed", "video", video.ID, "err", err)
		}
	}
	return b.history.Save(current)
}

// ProcessVideo runs one full decision cycle for a single video.
func (b *Bot) ProcessVideo(ctx context.Context, video rss.Video) error {
	cycleID := ulid.Make().String()
	log := slog.With("cycle", cycleID, "video", video.ID)
	log.Info("processing video", "title", video.Title)

	audioPath, err := b.fetcher.Fetch(ctx, video.URL)
	if err != nil {
		return fmt.Errorf("fetching audio: %w", err)
	}
	defer func() {
		if c, ok := b.fetcher.(interface{ Cleanup() }); ok {
			c.Cleanup()
		}
	}()

	transcript, err := b.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcribing: %w", err)
	}
	log.Info("transcription complete", "chars", len(transcript))

	analysis, err := b.classifier.Classify(ctx, sentiment.Item{
		ID:         video.ID,
		Title:      video.Title,
		Published:  video.Published,
		URL:        video.URL,
		Transcript: transcript,
	})
	if err != nil {
		return fmt.Errorf("classifying: %w", err)
	}

	// The model occasionally returns a directional stance with a null
	// instrument; fall back to the configured contrarian mapping.
	target := analysis.Target
	if target == nil {
		if inst, ok := b.cfg.Target(analysis.Sentiment); ok {
			log.Info("classifier omitted target, using configured mapping", "instrument", inst.Name)
			target = &sentiment.Target{Code: inst.Code, Name: inst.Name}
		}
	}

	event := archive.Event{
		Type:       "analysis",
		CycleID:    cycleID,
		VideoID:    video.ID,
		VideoTitle: video.Title,
		VideoURL:   video.URL,
		Published:  video.Published,
		Sentiment:  analysis.Sentiment,
		Reasoning:  analysis.Reasoning,
		Skipped:    analysis.Skip,
	}
	if target != nil {
		event.Target = target.Code
		event.TargetName = target.Name
	}

	if analysis.Skip {
		log.Info("no first-person market opinion, skipping")
		return b.archive.Write(event)
	}

	sig := strategy.Signal{
		SourceRef:   video.ID,
		SourceTitle: video.Title,
		SourceURL:   video.URL,
		AnalyzedAt:  time.Now().UTC(),
		Sentiment:   ledger.Sentiment(analysis.Sentiment),
		Reasoning:   analysis.Reasoning,
	}
	if target != nil {
		sig.TargetCode = target.Code
		sig.TargetName = target.Name
	}

	records, err := b.engine.Apply(ctx, sig)
	if err != nil {
		return fmt.Errorf("applying signal: %w", err)
	}
	event.Trades = countTrades(records)

	b.notifier.Send(ctx, b.notification(video, analysis, records))
	if b.dash != nil {
		b.dash.Broadcast(ctx)
	}
	return b.archive.Write(event)
}

func countTrades(records []ledger.TradeRecord) int {
	n := 0
	for _, r := range records {
		if r.TradeType != ledger.TradeNone {
			n++
		}
	}
	return n
}

func (b *Bot) notification(video rss.Video, analysis *sentiment.Analysis, records []ledger.TradeRecord) string {
	var sb strings.Builder
	sb.WriteString("📺 *New analysis (contrarian view)*\n\n")
	if analysis.Summary != "" {
		sb.WriteString(analysis.Summary)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "📊 Stance: %s\n", analysis.Sentiment)
	for _, r := range records {
		switch r.TradeType {
		case ledger.TradeBuy:
			fmt.Fprintf(&sb, "💡 BUY %s x %d @ %s\n", r.InstrumentName, r.Quantity, r.UnitPrice)
		case ledger.TradeSell:
			fmt.Fprintf(&sb, "💡 SELL %s (P/L %s, %s%%)\n", r.InstrumentName, r.RealizedProfit, r.RealizedProfitPct.StringFixed(2))
		}
	}
	fmt.Fprintf(&sb, "\n🔗 %s\n", video.URL)
	sb.WriteString("\n⚠️ Not investment advice. Simulation only.")
	return sb.String()
}
