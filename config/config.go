package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"futures-trader-go/infrastructure/logger"
	"futures-trader-go/session"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env        string           `yaml:"env"`
	Account    AccountConfig    `yaml:"account"`
	Session    SessionConfig    `yaml:"session"`
	Limits     LimitsConfig     `yaml:"limits"`
	Broker     BrokerConfig     `yaml:"broker"`
	Feed       FeedConfig       `yaml:"feed"`
	Strategies StrategiesConfig `yaml:"strategies"`
	Logger     logger.Config    `yaml:"logger"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Alert      AlertConfig      `yaml:"alert"`
	Journal    JournalConfig    `yaml:"journal"`
}

// AccountConfig 账户级风控参数。
type AccountConfig struct {
	InitialBalance   float64 `yaml:"initialBalance"`
	DailyLossLimit   float64 `yaml:"dailyLossLimit"`
	TrailingDrawdown float64 `yaml:"trailingDrawdown"`
}

// SessionConfig 交易时段，时刻为交易所时区的 "HH:MM"。
type SessionConfig struct {
	Start          string `yaml:"start"`
	Flatten        string `yaml:"flatten"`
	Timezone       string `yaml:"timezone"`
	PollIntervalMs int    `yaml:"pollIntervalMs"`
}

// LimitsConfig 逐单过滤限额，0 表示关闭对应限制。
type LimitsConfig struct {
	SingleMax        int `yaml:"singleMax"`
	NetMax           int `yaml:"netMax"`
	MaxOpenPositions int `yaml:"maxOpenPositions"`
}

type BrokerConfig struct {
	Kind      string `yaml:"kind"` // sim 或真实券商标识
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
}

type FeedConfig struct {
	Endpoint    string   `yaml:"endpoint"`
	Instruments []string `yaml:"instruments"`
}

type StrategiesConfig struct {
	MeanRevert  []MeanRevertParams  `yaml:"meanRevert"`
	TrendFollow []TrendFollowParams `yaml:"trendFollow"`
}

type MeanRevertParams struct {
	Instrument string  `yaml:"instrument"`
	Lookback   int     `yaml:"lookback"`
	EntryZ     float64 `yaml:"entryZ"`
	ExitZ      float64 `yaml:"exitZ"`
	OrderQty   int     `yaml:"orderQty"`
	MaxNet     int     `yaml:"maxNet"`
}

type TrendFollowParams struct {
	Instrument string `yaml:"instrument"`
	FastPeriod int    `yaml:"fastPeriod"`
	SlowPeriod int    `yaml:"slowPeriod"`
	OrderQty   int    `yaml:"orderQty"`
	MaxNet     int    `yaml:"maxNet"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type AlertConfig struct {
	ThrottleInterval string `yaml:"throttleInterval"`
	Console          bool   `yaml:"console"`
	SlackWebhook     string `yaml:"slackWebhook"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

// Load reads YAML config from path and applies validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("TRADER_BROKER_API_KEY"); v != "" {
		cfg.Broker.APIKey = v
	}
	if v := os.Getenv("TRADER_BROKER_API_SECRET"); v != "" {
		cfg.Broker.APISecret = v
	}
	if v := os.Getenv("TRADER_SLACK_WEBHOOK"); v != "" {
		cfg.Alert.SlackWebhook = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present and consistent.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}

	if cfg.Account.DailyLossLimit <= 0 {
		return errors.New("account.dailyLossLimit must be > 0")
	}
	if cfg.Account.TrailingDrawdown <= 0 {
		return errors.New("account.trailingDrawdown must be > 0")
	}
	if cfg.Account.InitialBalance < 0 {
		return errors.New("account.initialBalance must be >= 0")
	}

	start, err := session.ParseTimeOfDay(cfg.Session.Start)
	if err != nil {
		return fmt.Errorf("session.start: %w", err)
	}
	flatten, err := session.ParseTimeOfDay(cfg.Session.Flatten)
	if err != nil {
		return fmt.Errorf("session.flatten: %w", err)
	}
	if start == flatten {
		return errors.New("session.start and session.flatten must differ")
	}
	if cfg.Session.Timezone == "" {
		return errors.New("session.timezone is required")
	}
	if _, err := time.LoadLocation(cfg.Session.Timezone); err != nil {
		return fmt.Errorf("session.timezone: %w", err)
	}
	if cfg.Session.PollIntervalMs < 0 {
		return errors.New("session.pollIntervalMs must be >= 0")
	}

	if cfg.Limits.SingleMax < 0 || cfg.Limits.NetMax < 0 || cfg.Limits.MaxOpenPositions < 0 {
		return errors.New("limits must be >= 0")
	}

	switch cfg.Broker.Kind {
	case "", "sim":
	default:
		if cfg.Broker.APIKey == "" || cfg.Broker.APISecret == "" {
			return fmt.Errorf("broker %s requires apiKey/apiSecret (or env overrides)", cfg.Broker.Kind)
		}
	}

	if len(cfg.Feed.Instruments) > 0 && cfg.Feed.Endpoint == "" {
		return errors.New("feed.endpoint is required when instruments are configured")
	}

	for i, s := range cfg.Strategies.MeanRevert {
		if s.Instrument == "" || s.Lookback < 2 || s.OrderQty <= 0 {
			return fmt.Errorf("strategies.meanRevert[%d] invalid", i)
		}
	}
	for i, s := range cfg.Strategies.TrendFollow {
		if s.Instrument == "" || s.FastPeriod < 1 || s.SlowPeriod <= s.FastPeriod || s.OrderQty <= 0 {
			return fmt.Errorf("strategies.trendFollow[%d] invalid", i)
		}
	}

	if cfg.Alert.ThrottleInterval != "" {
		if _, err := time.ParseDuration(cfg.Alert.ThrottleInterval); err != nil {
			return fmt.Errorf("alert.throttleInterval: %w", err)
		}
	}

	return nil
}

// SessionWindow 把配置解析为调度器参数。调用方需先通过 Validate。
func (c SessionConfig) SessionWindow() (start, flatten session.TimeOfDay, loc *time.Location, err error) {
	if start, err = session.ParseTimeOfDay(c.Start); err != nil {
		return
	}
	if flatten, err = session.ParseTimeOfDay(c.Flatten); err != nil {
		return
	}
	loc, err = time.LoadLocation(c.Timezone)
	return
}

// PollInterval 返回 monitor 轮询周期，默认 1s。
func (c SessionConfig) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}
