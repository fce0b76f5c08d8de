// Package config loads and validates the runtime configuration.
// Defaults are applied only to fields the file did not set explicitly,
// so a literal zero in the file survives as zero.
package config

import (
	"strings"
	"time"
)

type Config struct {
	App       AppConfig       `toml:"app"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Risk      RiskConfig      `toml:"risk"`
	Position  PositionConfig  `toml:"position"`
	Evaluator EvaluatorConfig `toml:"evaluator"`
	Broker    BrokerConfig    `toml:"broker"`
	Store     StoreConfig     `toml:"store"`
	Inbox     InboxConfig     `toml:"inbox"`
	Market    MarketConfig    `toml:"market"`
}

type AppConfig struct {
	Env              string `toml:"env"`
	LogLevel         string `toml:"log_level"`
	HTTPAddr         string `toml:"http_addr"`
	LogPath          string `toml:"log_path"`
	EvaluatorLogPath string `toml:"evaluator_log_path"`
}

type PipelineConfig struct {
	ConfidenceThreshold      float64 `toml:"confidence_threshold"`
	AggregationWindowSeconds int     `toml:"aggregation_window_seconds"`
	CycleInterval            string  `toml:"cycle_interval"`
	CycleOffsetSeconds       int     `toml:"cycle_offset_seconds"`
	MonitorInterval          string  `toml:"monitor_interval"`
	RunImmediately           bool    `toml:"run_immediately"`
	LexiconPath              string  `toml:"lexicon_path"`
	RiskFraction             float64 `toml:"risk_fraction"`
	StopDistanceFraction     float64 `toml:"stop_distance_fraction"`
}

func (p PipelineConfig) AggregationWindow() time.Duration {
	return time.Duration(p.AggregationWindowSeconds) * time.Second
}

type RiskConfig struct {
	InitialEquityUSD        float64           `toml:"initial_equity_usd"`
	ExposureCeilingFraction float64           `toml:"exposure_ceiling_fraction"`
	PerTradeCapFraction     float64           `toml:"per_trade_cap_fraction"`
	DailyLossLimitFraction  float64           `toml:"daily_loss_limit_fraction"`
	CorrelationLimit        float64           `toml:"correlation_limit"`
	GroupRho                float64           `toml:"group_rho"`
	Groups                  map[string]string `toml:"groups"`
	EnableExposure          bool              `toml:"enable_exposure"`
	EnablePerTradeCap       bool              `toml:"enable_per_trade_cap"`
	EnableDailyLoss         bool              `toml:"enable_daily_loss"`
	EnableCorrelation       bool              `toml:"enable_correlation"`
}

type PositionConfig struct {
	StopLossFraction   float64 `toml:"stop_loss_fraction"`
	TakeProfitFraction float64 `toml:"take_profit_fraction"`
	MaxHoldDuration    string  `toml:"max_hold_duration"`
	FillTimeoutSeconds int     `toml:"fill_timeout_seconds"`
}

func (p PositionConfig) MaxHold() time.Duration {
	d, err := time.ParseDuration(p.MaxHoldDuration)
	if err != nil {
		return 72 * time.Hour
	}
	return d
}

type EvaluatorConfig struct {
	Mode                   string            `toml:"mode"` // "rule" | "openai"
	APIURL                 string            `toml:"api_url"`
	APIKey                 string            `toml:"api_key"`
	Model                  string            `toml:"model"`
	TimeoutSeconds         int               `toml:"timeout_seconds"`
	MaxRetries             int               `toml:"max_retries"`
	BreakerThreshold       int               `toml:"breaker_threshold"`
	BreakerCooldownSeconds int               `toml:"breaker_cooldown_seconds"`
	Headers                map[string]string `toml:"headers"`
}

type BrokerConfig struct {
	Mode          string `toml:"mode"` // "paper"
	LatencyMillis int    `toml:"latency_millis"`
}

type StoreConfig struct {
	AuditPath    string `toml:"audit_path"`
	EventLogPath string `toml:"event_log_path"`
}

type InboxConfig struct {
	Enabled   bool   `toml:"enabled"`
	Dir       string `toml:"dir"`
	SourceTag string `toml:"source_tag"`
	Timezone  string `toml:"timezone"`
}

type MarketConfig struct {
	Mode         string   `toml:"mode"` // "sim"
	WatchSymbols []string `toml:"watch_symbols"`
}

// keySet tracks which field paths the file set explicitly.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault is one field's defaulting rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
