package config

import (
	"fmt"
	"strings"
	"time"
)

func validate(c *Config) error {
	if err := c.Pipeline.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Position.validate(); err != nil {
		return err
	}
	if err := c.Evaluator.validate(); err != nil {
		return err
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("pipeline.confidence_threshold must be in [0, 1]")
	}
	if p.AggregationWindowSeconds <= 0 {
		return fmt.Errorf("pipeline.aggregation_window_seconds must be > 0")
	}
	if p.RiskFraction <= 0 || p.RiskFraction > 1 {
		return fmt.Errorf("pipeline.risk_fraction must be in (0, 1]")
	}
	if p.StopDistanceFraction <= 0 || p.StopDistanceFraction >= 1 {
		return fmt.Errorf("pipeline.stop_distance_fraction must be in (0, 1)")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.InitialEquityUSD <= 0 {
		return fmt.Errorf("risk.initial_equity_usd must be > 0")
	}
	if r.PerTradeCapFraction <= 0 || r.PerTradeCapFraction > 1 {
		return fmt.Errorf("risk.per_trade_cap_fraction must be in (0, 1]")
	}
	if r.ExposureCeilingFraction <= 0 || r.ExposureCeilingFraction > 1 {
		return fmt.Errorf("risk.exposure_ceiling_fraction must be in (0, 1]")
	}
	if r.DailyLossLimitFraction < 0 || r.DailyLossLimitFraction > 1 {
		return fmt.Errorf("risk.daily_loss_limit_fraction must be in [0, 1]")
	}
	if r.CorrelationLimit < 0 || r.CorrelationLimit > 1 {
		return fmt.Errorf("risk.correlation_limit must be in [0, 1]")
	}
	return nil
}

func (p *PositionConfig) validate() error {
	if p.StopLossFraction <= 0 || p.StopLossFraction >= 1 {
		return fmt.Errorf("position.stop_loss_fraction must be in (0, 1)")
	}
	if p.TakeProfitFraction <= 0 {
		return fmt.Errorf("position.take_profit_fraction must be > 0")
	}
	if _, err := time.ParseDuration(p.MaxHoldDuration); err != nil {
		return fmt.Errorf("position.max_hold_duration is not a valid duration: %w", err)
	}
	return nil
}

func (e *EvaluatorConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.Mode)) {
	case "rule":
	case "openai":
		if strings.TrimSpace(e.APIURL) == "" {
			return fmt.Errorf("evaluator.api_url required when mode is openai")
		}
		if strings.TrimSpace(e.Model) == "" {
			return fmt.Errorf("evaluator.model required when mode is openai")
		}
	default:
		return fmt.Errorf("evaluator.mode must be \"rule\" or \"openai\", got %q", e.Mode)
	}
	return nil
}
