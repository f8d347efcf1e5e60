package config

import (
	"fmt"
	"time"
)

// Validate performs basic validation on configuration parameters. It is meant
// to run once at startup so a misconfigured deployment fails before the first
// evaluation, not during it.
func (c *Config) Validate() error {
	if c.AccountID == "" {
		return fmt.Errorf("account ID cannot be empty")
	}

	if err := c.Sizing.validate(); err != nil {
		return fmt.Errorf("sizing config: %w", err)
	}
	if err := c.Guard.validate(); err != nil {
		return fmt.Errorf("guard config: %w", err)
	}
	if err := c.Anomaly.validate(); err != nil {
		return fmt.Errorf("anomaly config: %w", err)
	}
	if err := c.Gate.validate(); err != nil {
		return fmt.Errorf("gate config: %w", err)
	}

	return nil
}

func (s *SizingConfig) validate() error {
	if s.SafetyFactor <= 0 || s.SafetyFactor > 1 {
		return fmt.Errorf("safety factor must be in (0, 1], got: %.4f", s.SafetyFactor)
	}
	if s.MaxFraction <= 0 || s.MaxFraction > 1 {
		return fmt.Errorf("max fraction must be in (0, 1], got: %.4f", s.MaxFraction)
	}
	if s.LookbackWindow <= 0 {
		return fmt.Errorf("lookback window must be positive, got: %d", s.LookbackWindow)
	}
	if s.MinTradesRequired < 0 {
		return fmt.Errorf("minimum trades required cannot be negative, got: %d", s.MinTradesRequired)
	}
	if s.DefaultFraction < 0 || s.DefaultFraction > s.MaxFraction {
		return fmt.Errorf("default fraction must be in [0, max fraction], got: %.4f", s.DefaultFraction)
	}
	return nil
}

func (g *GuardConfig) validate() error {
	if g.MaxDrawdownPct <= 0 || g.MaxDrawdownPct >= 1 {
		return fmt.Errorf("max drawdown must be in (0, 1), got: %.4f", g.MaxDrawdownPct)
	}
	if g.ConsecutiveLossLimit <= 0 {
		return fmt.Errorf("consecutive loss limit must be positive, got: %d", g.ConsecutiveLossLimit)
	}
	if g.CooldownPeriod <= 0 {
		return fmt.Errorf("cooldown period must be positive, got: %v", g.CooldownPeriod)
	}
	if g.RetentionHorizon < time.Hour {
		return fmt.Errorf("retention horizon must be at least 1h, got: %v", g.RetentionHorizon)
	}
	return nil
}

func (a *AnomalyConfig) validate() error {
	if a.WindowSize <= 1 {
		return fmt.Errorf("window size must be greater than 1, got: %d", a.WindowSize)
	}
	if a.MinWindowSize <= 1 || a.MinWindowSize > a.WindowSize {
		return fmt.Errorf("min window size must be in (1, window size], got: %d", a.MinWindowSize)
	}
	if a.SpreadWarning <= 0 || a.SpreadCritical <= a.SpreadWarning {
		return fmt.Errorf("spread thresholds must satisfy 0 < warning < critical, got: %.4f / %.4f",
			a.SpreadWarning, a.SpreadCritical)
	}
	if a.LatencyWarning <= 0 || a.LatencyCritical <= a.LatencyWarning {
		return fmt.Errorf("latency thresholds must satisfy 0 < warning < critical, got: %v / %v",
			a.LatencyWarning, a.LatencyCritical)
	}
	if a.PriceZScore <= 0 {
		return fmt.Errorf("price z-score threshold must be positive, got: %.2f", a.PriceZScore)
	}
	if a.VolumeZScore <= 0 {
		return fmt.Errorf("volume z-score threshold must be positive, got: %.2f", a.VolumeZScore)
	}
	return nil
}

func (g *GateConfig) validate() error {
	if g.MinConfidence < 0 || g.MinConfidence > 1 {
		return fmt.Errorf("minimum confidence must be in [0, 1], got: %.4f", g.MinConfidence)
	}
	if g.ConditionalRiskThreshold <= 0 || g.ConditionalRiskThreshold > 1 {
		return fmt.Errorf("conditional risk threshold must be in (0, 1], got: %.4f", g.ConditionalRiskThreshold)
	}
	if g.ConditionalSizeMultiplier <= 0 || g.ConditionalSizeMultiplier > 1 {
		return fmt.Errorf("conditional size multiplier must be in (0, 1], got: %.4f", g.ConditionalSizeMultiplier)
	}
	if g.WeightConfidence < 0 || g.WeightDrawdown < 0 || g.WeightAnomalies < 0 || g.WeightSize < 0 {
		return fmt.Errorf("risk score weights cannot be negative")
	}
	if g.WeightConfidence+g.WeightDrawdown+g.WeightAnomalies+g.WeightSize == 0 {
		return fmt.Errorf("at least one risk score weight must be positive")
	}
	return nil
}
