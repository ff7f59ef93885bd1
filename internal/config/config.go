package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Data     DataConfig     `mapstructure:"data"`
	Gamma    GammaConfig    `mapstructure:"gamma"`
	ClobREST ClobRESTConfig `mapstructure:"clob_rest"`
	Feeds    FeedsConfig    `mapstructure:"feeds"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Judge    JudgeConfig    `mapstructure:"judge"`
	Matching MatchingConfig `mapstructure:"matching"`
	Trading  TradingConfig  `mapstructure:"trading"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// DataConfig locates the JSON document caches. Every store lives under Dir.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type GammaConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PageLimit int           `mapstructure:"page_limit"`
	// PageRatePerSec throttles pagination against the Gamma API.
	PageRatePerSec float64 `mapstructure:"page_rate_per_sec"`
}

type ClobRESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type FeedsConfig struct {
	// Sources maps a human-readable source name to an RSS feed URL.
	Sources map[string]string `mapstructure:"sources"`
	Timeout time.Duration     `mapstructure:"timeout"`
	// FetchRatePerSec throttles successive feed fetches.
	FetchRatePerSec float64 `mapstructure:"fetch_rate_per_sec"`
}

type EmbedConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type JudgeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	APIKeyEnv string        `mapstructure:"api_key_env"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

type MatchingConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	RecentHeadlines     int     `mapstructure:"recent_headlines"`
}

type TradingConfig struct {
	PositionSizeUSD     float64       `mapstructure:"position_size_usd"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	SpreadLimit         float64       `mapstructure:"spread_limit"`
	StopLossPct         float64       `mapstructure:"stop_loss_pct"`
	TakeProfitPct       float64       `mapstructure:"take_profit_pct"`
	MinHoldForTP        time.Duration `mapstructure:"min_hold_for_tp"`
	MaxHoldTime         time.Duration `mapstructure:"max_hold_time"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)

	v.SetDefault("data.dir", "data")

	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "30s")
	v.SetDefault("gamma.page_limit", 100)
	v.SetDefault("gamma.page_rate_per_sec", 4.0)

	v.SetDefault("clob_rest.base_url", "https://clob.polymarket.com")
	v.SetDefault("clob_rest.timeout", "15s")

	v.SetDefault("feeds.timeout", "20s")
	v.SetDefault("feeds.fetch_rate_per_sec", 2.0)

	v.SetDefault("embed.base_url", "https://api.openai.com/v1")
	v.SetDefault("embed.model", "text-embedding-3-small")
	v.SetDefault("embed.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("embed.timeout", "60s")

	v.SetDefault("judge.base_url", "https://api.openai.com/v1")
	v.SetDefault("judge.model", "gpt-4o-mini")
	v.SetDefault("judge.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("judge.timeout", "35s")
	v.SetDefault("judge.max_tokens", 256)

	v.SetDefault("matching.similarity_threshold", 0.65)
	v.SetDefault("matching.recent_headlines", 20)

	v.SetDefault("trading.position_size_usd", 25.0)
	v.SetDefault("trading.confidence_threshold", 0.6)
	v.SetDefault("trading.spread_limit", 0.05)
	v.SetDefault("trading.stop_loss_pct", 5.0)
	v.SetDefault("trading.take_profit_pct", 3.0)
	v.SetDefault("trading.min_hold_for_tp", "15m")
	v.SetDefault("trading.max_hold_time", "2h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
