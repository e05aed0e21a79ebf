package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Env holds credentials read from the process environment (optionally
// seeded from a .env file). Telegram credentials may be absent; the
// notifier then disables itself.
type Env struct {
	OpenAIAPIKey     string
	OpenAIModel      string
	TelegramBotToken string
	TelegramChatID   string
}

func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	env := &Env{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnvDefault("OPENAI_MODEL", "gpt-4o"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}

	if env.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return env, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Instrument is one of the two ETFs the contrarian strategy trades.
type Instrument struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Strategy is the YAML-file configuration of the simulation. Amounts are
// whole KRW.
type Strategy struct {
	ChannelID        string     `yaml:"channel_id"`
	PollIntervalMins int        `yaml:"poll_interval_mins"`
	InitialCapital   int64      `yaml:"initial_capital"`
	PositionSize     int64      `yaml:"position_size"`
	Primary          Instrument `yaml:"primary"` // bought on DOWN sentiment
	Inverse          Instrument `yaml:"inverse"` // bought on UP sentiment
	DBPath           string     `yaml:"db_path"`
	HistoryFile      string     `yaml:"history_file"`
	ArchiveDir       string     `yaml:"archive_dir"`
	DashboardAddr    string     `yaml:"dashboard_addr"`
	StrictLedger     bool       `yaml:"strict_ledger"`
}

// Default mirrors the original simulation parameters: 10M initial capital,
// 1M fixed position size, KODEX 200 as the primary index ETF and KODEX
// Inverse as its contrarian counterpart.
func Default() *Strategy {
	return &Strategy{
		ChannelID:        "UCznImSIaxZR7fdLCICLdgaQ",
		PollIntervalMins: 60,
		InitialCapital:   10_000_000,
		PositionSize:     1_000_000,
		Primary:          Instrument{Code: "069500", Name: "KODEX 200"},
		Inverse:          Instrument{Code: "114800", Name: "KODEX Inverse"},
		DBPath:           "data/trades.db",
		HistoryFile:      "data/video_history.json",
		ArchiveDir:       "data/archive",
	}
}

// LoadStrategy reads a YAML strategy file over the defaults. An empty path
// returns the defaults unchanged.
func LoadStrategy(path string) (*Strategy, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading strategy file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing strategy file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy config: %w", err)
	}
	return cfg, nil
}

func (c *Strategy) Validate() error {
	if c.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if c.PollIntervalMins <= 0 {
		return fmt.Errorf("poll_interval_mins must be positive")
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if c.PositionSize <= 0 {
		return fmt.Errorf("position_size must be positive")
	}
	if c.PositionSize > c.InitialCapital {
		return fmt.Errorf("position_size must not exceed initial_capital")
	}
	if c.Primary.Code == "" || c.Inverse.Code == "" {
		return fmt.Errorf("primary and inverse instrument codes are required")
	}
	if c.Primary.Code == c.Inverse.Code {
		return fmt.Errorf("primary and inverse instruments must differ")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	return nil
}

// Target resolves the contrarian instrument for a directional sentiment:
// UP bets against the market (inverse ETF), DOWN bets on recovery (primary
// ETF). NEUTRAL resolves to nothing.
func (c *Strategy) Target(sentiment string) (Instrument, bool) {
	switch sentiment {
	case "UP":
		return c.Inverse, true
	case "DOWN":
		return c.Primary, true
	default:
		return Instrument{}, false
	}
}
