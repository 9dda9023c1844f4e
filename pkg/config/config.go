package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	xutil "HypeRadar/pkg/util"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Environment string              `yaml:"environment"`
	Log         LogConfig           `yaml:"log"`
	Server      ServerConfig        `yaml:"server"`
	Metrics     MetricsConfig       `yaml:"metrics"`
	Watchlist   []WatchlistEntry    `yaml:"watchlist"`
	Themes      map[string][]string `yaml:"themes"`
	Scoring     ScoringConfig       `yaml:"scoring"`
	Cache       CacheConfig         `yaml:"cache"`
	Cycle       CycleConfig         `yaml:"cycle"`
	Providers   ProvidersConfig     `yaml:"providers"`
	Store       StoreConfig         `yaml:"store"`
	Backend     BackendConfig       `yaml:"backend"`
	Postgres    PostgresConfig      `yaml:"postgres"`
	ClickHouse  ClickHouseConfig    `yaml:"clickhouse"`
	Kafka       KafkaConfig         `yaml:"kafka"`
	Redis       RedisConfig         `yaml:"redis"`
	Notify      NotifyConfig        `yaml:"notify"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORS            bool          `yaml:"cors"`
	WSOrigins       []string      `yaml:"ws_origins"`
	ScanRateLimit   struct {
		Every time.Duration `yaml:"every"`
		Burst int           `yaml:"burst"`
	} `yaml:"scan_rate_limit"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WatchlistEntry is one tracked symbol. Group selects the population its
// hype score is computed against.
type WatchlistEntry struct {
	Ticker  string   `yaml:"ticker"`
	Sector  string   `yaml:"sector"`
	Group   string   `yaml:"group"`
	Aliases []string `yaml:"aliases"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type Step struct {
	Threshold float64 `yaml:"threshold"`
	Boost     float64 `yaml:"boost"`
}

// ScoringConfig overrides scoring constants. Zero values keep the built-in
// defaults.
type ScoringConfig struct {
	Weights struct {
		Options float64 `yaml:"options"`
		Volume  float64 `yaml:"volume"`
		Social  float64 `yaml:"social"`
	} `yaml:"weights"`
	Tiers struct {
		Critical float64 `yaml:"critical"`
		High     float64 `yaml:"high"`
		Medium   float64 `yaml:"medium"`
	} `yaml:"tiers"`
	TriggerThreshold    float64  `yaml:"trigger_threshold"`
	HighAttention       []string `yaml:"high_attention"`
	OptionsScale        []Point  `yaml:"options_scale"`
	VolumeScale         []Point  `yaml:"volume_scale"`
	SocialRatioScale    []Point  `yaml:"social_ratio_scale"`
	SocialAbsoluteScale []Point  `yaml:"social_absolute_scale"`
	PutSkewFactor       float64  `yaml:"put_skew_factor"`
	VolatilityThreshold float64  `yaml:"volatility_threshold"`
	VolatilityBoost     float64  `yaml:"volatility_boost"`
	SustainedVolume     []Step   `yaml:"sustained_volume_boost"`
	RankBoost           []Step   `yaml:"rank_boost"`
	Hype                struct {
		Social float64 `yaml:"social"`
		News   float64 `yaml:"news"`
	} `yaml:"hype"`
	Mover struct {
		AlertWeight    float64   `yaml:"alert_weight"`
		MomentumWeight float64   `yaml:"momentum_weight"`
		LevelWeight    float64   `yaml:"level_weight"`
		MomentumScale  float64   `yaml:"momentum_scale"`
		LevelBonus     float64   `yaml:"level_bonus"`
		NearHighPct    float64   `yaml:"near_high_pct"`
		NearRoundPct   float64   `yaml:"near_round_pct"`
		RoundLevels    []float64 `yaml:"round_levels"`
		Breakout       float64   `yaml:"breakout"`
		Watch          float64   `yaml:"watch"`
		MomentumDays   int       `yaml:"momentum_days"`
	} `yaml:"mover"`
}

type CacheConfig struct {
	ScoreTTL     time.Duration `yaml:"score_ttl"`
	AggregateTTL time.Duration `yaml:"aggregate_ttl"`
	OptionsTTL   time.Duration `yaml:"options_ttl"`
	ReportTTL    time.Duration `yaml:"report_ttl"`
}

type CycleConfig struct {
	Schedule        string        `yaml:"schedule"`
	RunOnStart      bool          `yaml:"run_on_start"`
	Workers         int           `yaml:"workers"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
	PersistTimeout  time.Duration `yaml:"persist_timeout"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	HistoryWindow   time.Duration `yaml:"history_window"`
}

type ProviderConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	MinDelay time.Duration `yaml:"min_delay"`
	Timeout  time.Duration `yaml:"timeout"`
	Pages    int           `yaml:"pages"`
	Limit    int           `yaml:"limit"`
	Days     int           `yaml:"days"`
}

type ProvidersConfig struct {
	Yahoo      ProviderConfig `yaml:"yahoo"`
	Finnhub    ProviderConfig `yaml:"finnhub"`
	ApeWisdom  ProviderConfig `yaml:"apewisdom"`
	Polymarket ProviderConfig `yaml:"polymarket"`
	Breaker    struct {
		MaxFailures uint32        `yaml:"max_failures"`
		OpenTimeout time.Duration `yaml:"open_timeout"`
	} `yaml:"breaker"`
}

// StoreConfig selects the latest-score store: memory or postgres.
type StoreConfig struct {
	Type string `yaml:"type"`
}

// BackendConfig selects the history path: memory, clickhouse or kafka.
// With kafka, snapshots are published and a consumer writes them to ClickHouse.
type BackendConfig struct {
	Type string `yaml:"type"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type ClickHouseConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Database    string        `yaml:"database"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	UseHTTP     bool          `yaml:"use_http"`
	AsyncInsert bool          `yaml:"async_insert"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	RequiredAcks int      `yaml:"required_acks"`
	Compression  string   `yaml:"compression"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts"`
		BatchSize    int           `yaml:"batch_size"`
		Linger       time.Duration `yaml:"linger"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id"`
		Workers    int           `yaml:"workers"`
		RetryMax   int           `yaml:"retry_max"`
		BackoffMin time.Duration `yaml:"backoff_min"`
		BackoffMax time.Duration `yaml:"backoff_max"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type NotifyConfig struct {
	Recipients []string `yaml:"recipients"`
	Email      struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"email"`
	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		Token   string `yaml:"token"`
		ChatID  int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers"`
		MaxRetries int           `yaml:"max_retries"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
}

// Load reads and parses a YAML configuration file, applies defaults and
// validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads an optional .env file, then the YAML config, then lets
// environment variables override secrets and endpoints.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Environment, "APP_ENV")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Providers.Finnhub.APIKey, "FINNHUB_API_KEY")
	setString(&c.Store.Type, "STORE")
	setString(&c.Backend.Type, "BACKEND")
	setString(&c.Postgres.DSN, "DATABASE_URL")
	setString(&c.ClickHouse.Host, "CLICKHOUSE_HOST")
	setString(&c.ClickHouse.Password, "CLICKHOUSE_PASSWORD")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Redis.Host, "REDIS_HOST")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Notify.Email.Password, "SMTP_PASSWORD")
	setString(&c.Notify.Telegram.Token, "TELEGRAM_BOT_TOKEN")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ALERT_RECIPIENTS"); v != "" {
		c.Notify.Recipients = strings.Split(v, ",")
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = c.Watchlist[:0]
		for _, t := range strings.Split(v, ",") {
			c.Watchlist = append(c.Watchlist, WatchlistEntry{Ticker: t})
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.Telegram.ChatID = id
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ScanRateLimit.Every == 0 {
		c.Server.ScanRateLimit.Every = time.Minute
	}
	if c.Server.ScanRateLimit.Burst == 0 {
		c.Server.ScanRateLimit.Burst = 1
	}
	if len(c.Server.WSOrigins) == 0 {
		c.Server.WSOrigins = []string{"*"}
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	for i := range c.Watchlist {
		w := &c.Watchlist[i]
		w.Ticker = xutil.NormalizeTicker(w.Ticker)
		if w.Group == "" {
			w.Group = "stocks"
		}
	}

	if c.Cache.ScoreTTL == 0 {
		c.Cache.ScoreTTL = 5 * time.Minute
	}
	if c.Cache.AggregateTTL == 0 {
		c.Cache.AggregateTTL = 10 * time.Minute
	}
	if c.Cache.OptionsTTL == 0 {
		c.Cache.OptionsTTL = 4 * time.Hour
	}
	if c.Cache.ReportTTL == 0 {
		c.Cache.ReportTTL = 2 * time.Hour
	}

	if c.Cycle.Schedule == "" {
		c.Cycle.Schedule = "@every 1h"
	}
	if c.Cycle.Workers <= 0 {
		c.Cycle.Workers = 4
	}
	if c.Cycle.ProviderTimeout == 0 {
		c.Cycle.ProviderTimeout = 10 * time.Second
	}
	if c.Cycle.PersistTimeout == 0 {
		c.Cycle.PersistTimeout = 10 * time.Second
	}
	if c.Cycle.LockTTL == 0 {
		c.Cycle.LockTTL = 30 * time.Minute
	}
	if c.Cycle.HistoryWindow == 0 {
		c.Cycle.HistoryWindow = 7 * 24 * time.Hour
	}

	p := &c.Providers
	defaultProvider(&p.Yahoo, "https://query2.finance.yahoo.com", 250*time.Millisecond)
	defaultProvider(&p.Finnhub, "https://finnhub.io/api/v1", 500*time.Millisecond)
	defaultProvider(&p.ApeWisdom, "https://apewisdom.io/api/v1.0", time.Second)
	defaultProvider(&p.Polymarket, "https://gamma-api.polymarket.com", 250*time.Millisecond)
	if p.Finnhub.Days == 0 {
		p.Finnhub.Days = 7
	}
	if p.ApeWisdom.Pages == 0 {
		p.ApeWisdom.Pages = 5
	}
	if p.Polymarket.Limit == 0 {
		p.Polymarket.Limit = 50
	}
	if p.Breaker.MaxFailures == 0 {
		p.Breaker.MaxFailures = 5
	}
	if p.Breaker.OpenTimeout == 0 {
		p.Breaker.OpenTimeout = time.Minute
	}

	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.Backend.Type == "" {
		c.Backend.Type = "memory"
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 5
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "hyperadar.snapshots"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "hyperadar-history"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "hyperadar"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Notify.Queue.Workers == 0 {
		c.Notify.Queue.Workers = 1
	}
	if c.Notify.Queue.MaxRetries == 0 {
		c.Notify.Queue.MaxRetries = 3
	}
	if c.Notify.Queue.RetryDelay == 0 {
		c.Notify.Queue.RetryDelay = 30 * time.Second
	}
}

func defaultProvider(p *ProviderConfig, baseURL string, delay time.Duration) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.MinDelay == 0 {
		p.MinDelay = delay
	}
	if p.Timeout == 0 {
		p.Timeout = 15 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Watchlist) == 0 {
		return errors.New("watchlist cannot be empty")
	}
	seen := make(map[string]struct{}, len(c.Watchlist))
	for _, w := range c.Watchlist {
		if w.Ticker == "" {
			return errors.New("watchlist entry without ticker")
		}
		if _, dup := seen[w.Ticker]; dup {
			return fmt.Errorf("watchlist ticker %s listed twice", w.Ticker)
		}
		seen[w.Ticker] = struct{}{}
		if w.Group != "stocks" && w.Group != "crypto" {
			return fmt.Errorf("watchlist %s: group must be 'stocks' or 'crypto', got '%s'", w.Ticker, w.Group)
		}
	}

	switch c.Store.Type {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required when store.type is postgres")
		}
	default:
		return fmt.Errorf("store.type must be 'memory' or 'postgres', got '%s'", c.Store.Type)
	}

	switch c.Backend.Type {
	case "memory", "clickhouse":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers cannot be empty when backend.type is kafka")
		}
	default:
		return fmt.Errorf("backend.type must be 'memory', 'clickhouse' or 'kafka', got '%s'", c.Backend.Type)
	}
	if (c.Backend.Type == "clickhouse" || c.Backend.Type == "kafka") && c.ClickHouse.Host == "" {
		return errors.New("clickhouse.host is required for the clickhouse and kafka backends")
	}

	if c.Cache.ScoreTTL < 0 || c.Cache.AggregateTTL < 0 || c.Cache.OptionsTTL < 0 {
		return errors.New("cache ttls must be positive")
	}
	if c.Notify.Queue.Enabled && !c.Redis.Enabled {
		return errors.New("notify.queue requires redis.enabled")
	}
	if c.Notify.Email.Enabled && (c.Notify.Email.Host == "" || c.Notify.Email.From == "") {
		return errors.New("notify.email requires host and from")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.Token == "" || c.Notify.Telegram.ChatID == 0) {
		return errors.New("notify.telegram requires token and chat_id")
	}
	return nil
}

// Tickers returns the watchlist symbols in configured order.
func (c *Config) Tickers() []string {
	out := make([]string, len(c.Watchlist))
	for i, w := range c.Watchlist {
		out[i] = w.Ticker
	}
	return out
}
