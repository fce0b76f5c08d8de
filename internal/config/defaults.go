package config

import "strings"

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9991"
	defaultAppLogPath       = "data/logs/tradebot.log"
	defaultAppEvaluatorLog  = "data/logs/evaluator.log"
	defaultThreshold        = 0.6
	defaultAggWindowSeconds = 300
	defaultCycleInterval    = "5m"
	defaultMonitorInterval  = "1m"
	defaultRiskFraction     = 0.01
	defaultStopDistance     = 0.05
	defaultEquityUSD        = 100000
	defaultExposureCeiling  = 0.5
	defaultPerTradeCap      = 0.02
	defaultDailyLossLimit   = 0.03
	defaultCorrelationLimit = 0.75
	defaultGroupRho         = 0.8
	defaultStopLoss         = 0.05
	defaultTakeProfit       = 0.10
	defaultMaxHold          = "72h"
	defaultFillTimeoutSecs  = 10
	defaultEvaluatorMode    = "rule"
	defaultEvaluatorTimeout = 30
	defaultEvaluatorRetries = 2
	defaultBreakerThreshold = 3
	defaultBreakerCooldown  = 120
	defaultBrokerMode       = "paper"
	defaultBrokerLatencyMs  = 50
	defaultAuditPath        = "data/db/audit.db"
	defaultEventLogPath     = "data/db/events.db"
	defaultInboxDir         = "data/inbox"
	defaultInboxSourceTag   = "whatsapp"
	defaultInboxTimezone    = "Asia/Jerusalem"
	defaultMarketMode       = "sim"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Pipeline.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Position.applyDefaults(keys)
	c.Evaluator.applyDefaults(keys)
	c.Broker.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Inbox.applyDefaults(keys)
	c.Market.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.evaluator_log_path", &a.EvaluatorLogPath, defaultAppEvaluatorLog),
	)
}

func (p *PipelineConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("pipeline.confidence_threshold", &p.ConfidenceThreshold, defaultThreshold),
		intFieldDefault("pipeline.aggregation_window_seconds", &p.AggregationWindowSeconds, defaultAggWindowSeconds),
		stringFieldDefault("pipeline.cycle_interval", &p.CycleInterval, defaultCycleInterval),
		stringFieldDefault("pipeline.monitor_interval", &p.MonitorInterval, defaultMonitorInterval),
		floatFieldDefault("pipeline.risk_fraction", &p.RiskFraction, defaultRiskFraction),
		floatFieldDefault("pipeline.stop_distance_fraction", &p.StopDistanceFraction, defaultStopDistance),
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("risk.initial_equity_usd", &r.InitialEquityUSD, defaultEquityUSD),
		floatFieldDefault("risk.exposure_ceiling_fraction", &r.ExposureCeilingFraction, defaultExposureCeiling),
		floatFieldDefault("risk.per_trade_cap_fraction", &r.PerTradeCapFraction, defaultPerTradeCap),
		floatFieldDefault("risk.daily_loss_limit_fraction", &r.DailyLossLimitFraction, defaultDailyLossLimit),
		floatFieldDefault("risk.correlation_limit", &r.CorrelationLimit, defaultCorrelationLimit),
		floatFieldDefault("risk.group_rho", &r.GroupRho, defaultGroupRho),
		boolFieldDefault("risk.enable_exposure", &r.EnableExposure, true),
		boolFieldDefault("risk.enable_per_trade_cap", &r.EnablePerTradeCap, true),
		boolFieldDefault("risk.enable_daily_loss", &r.EnableDailyLoss, true),
		boolFieldDefault("risk.enable_correlation", &r.EnableCorrelation, true),
	)
}

func (p *PositionConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("position.stop_loss_fraction", &p.StopLossFraction, defaultStopLoss),
		floatFieldDefault("position.take_profit_fraction", &p.TakeProfitFraction, defaultTakeProfit),
		stringFieldDefault("position.max_hold_duration", &p.MaxHoldDuration, defaultMaxHold),
		intFieldDefault("position.fill_timeout_seconds", &p.FillTimeoutSeconds, defaultFillTimeoutSecs),
	)
}

func (e *EvaluatorConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("evaluator.mode", &e.Mode, defaultEvaluatorMode),
		intFieldDefault("evaluator.timeout_seconds", &e.TimeoutSeconds, defaultEvaluatorTimeout),
		intFieldDefault("evaluator.max_retries", &e.MaxRetries, defaultEvaluatorRetries),
		intFieldDefault("evaluator.breaker_threshold", &e.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("evaluator.breaker_cooldown_seconds", &e.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
}

func (b *BrokerConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("broker.mode", &b.Mode, defaultBrokerMode),
		intFieldDefault("broker.latency_millis", &b.LatencyMillis, defaultBrokerLatencyMs),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.audit_path", &s.AuditPath, defaultAuditPath),
		stringFieldDefault("store.event_log_path", &s.EventLogPath, defaultEventLogPath),
	)
}

func (i *InboxConfig) applyDefaults(keys keySet) {
	if i == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("inbox.dir", &i.Dir, defaultInboxDir),
		stringFieldDefault("inbox.source_tag", &i.SourceTag, defaultInboxSourceTag),
		stringFieldDefault("inbox.timezone", &i.Timezone, defaultInboxTimezone),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.mode", &m.Mode, defaultMarketMode),
	)
	if len(m.WatchSymbols) == 0 {
		m.WatchSymbols = []string{"AAPL", "NVDA", "TSLA", "MSFT", "SPY"}
	}
	for i, s := range m.WatchSymbols {
		m.WatchSymbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
