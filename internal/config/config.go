package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full configuration surface of the risk gating engine.
// Every threshold the engine consults lives here; nothing is hard-coded.
type Config struct {
	AccountID string
	StateDir  string

	Sizing     SizingConfig
	Guard      GuardConfig
	Anomaly    AnomalyConfig
	Gate       GateConfig
	Monitoring MonitoringConfig
}

// SizingConfig controls the Kelly position sizer.
type SizingConfig struct {
	SafetyFactor      float64 // multiplier on the raw Kelly fraction
	MaxFraction       float64 // hard ceiling on any returned fraction
	LookbackWindow    int     // trades considered when estimating p/W/L
	MinTradesRequired int
	DefaultFraction   float64 // used while history is too thin
}

// GuardConfig controls the drawdown guard state machine.
type GuardConfig struct {
	MaxDrawdownPct       float64
	ConsecutiveLossLimit int
	CooldownPeriod       time.Duration
	RetentionHorizon     time.Duration // equity samples older than this are pruned
}

// AnomalyConfig controls the market/infrastructure anomaly checks.
type AnomalyConfig struct {
	WindowSize    int
	MinWindowSize int // z-score checks stay silent below this

	SpreadWarning   float64
	SpreadCritical  float64
	LatencyWarning  time.Duration
	LatencyCritical time.Duration
	PriceZScore     float64
	VolumeZScore    float64
}

// GateConfig controls the final admission decision.
type GateConfig struct {
	MinConfidence             float64
	ConditionalRiskThreshold  float64
	ConditionalSizeMultiplier float64

	// Risk score weights; the blend divides by their sum so the score
	// stays in [0,1] for any positive combination.
	WeightConfidence float64
	WeightDrawdown   float64
	WeightAnomalies  float64
	WeightSize       float64
}

// MonitoringConfig controls the metrics and health endpoints.
type MonitoringConfig struct {
	PrometheusPort int
	HealthPort     int
}

// Load builds a Config from environment variables with engine defaults.
func Load() *Config {
	return &Config{
		AccountID: getEnv("ACCOUNT_ID", "default"),
		StateDir:  getEnv("STATE_DIR", "state"),

		Sizing: SizingConfig{
			SafetyFactor:      getEnvFloat("KELLY_SAFETY_FACTOR", 0.5),
			MaxFraction:       getEnvFloat("KELLY_MAX_FRACTION", 0.1),
			LookbackWindow:    getEnvInt("KELLY_LOOKBACK_WINDOW", 50),
			MinTradesRequired: getEnvInt("MIN_TRADES_REQUIRED", 10),
			DefaultFraction:   getEnvFloat("DEFAULT_FRACTION", 0.01),
		},

		Guard: GuardConfig{
			MaxDrawdownPct:       getEnvFloat("MAX_DRAWDOWN_PCT", 0.20),
			ConsecutiveLossLimit: getEnvInt("CONSECUTIVE_LOSS_LIMIT", 5),
			CooldownPeriod:       getEnvDuration("COOLDOWN_PERIOD", 24*time.Hour),
			RetentionHorizon:     getEnvDuration("EQUITY_RETENTION", 30*24*time.Hour),
		},

		Anomaly: AnomalyConfig{
			WindowSize:      getEnvInt("ANOMALY_WINDOW_SIZE", 50),
			MinWindowSize:   getEnvInt("ANOMALY_MIN_WINDOW", 20),
			SpreadWarning:   getEnvFloat("SPREAD_WARNING", 0.003),
			SpreadCritical:  getEnvFloat("SPREAD_CRITICAL", 0.005),
			LatencyWarning:  getEnvDuration("LATENCY_WARNING", time.Second),
			LatencyCritical: getEnvDuration("LATENCY_CRITICAL", 3*time.Second),
			PriceZScore:     getEnvFloat("PRICE_ZSCORE_CRITICAL", 3.0),
			VolumeZScore:    getEnvFloat("VOLUME_ZSCORE_CRITICAL", 3.0),
		},

		Gate: GateConfig{
			MinConfidence:             getEnvFloat("MIN_CONFIDENCE", 0.6),
			ConditionalRiskThreshold:  getEnvFloat("CONDITIONAL_RISK_THRESHOLD", 0.6),
			ConditionalSizeMultiplier: getEnvFloat("CONDITIONAL_SIZE_MULTIPLIER", 0.5),
			WeightConfidence:          getEnvFloat("WEIGHT_CONFIDENCE", 0.35),
			WeightDrawdown:            getEnvFloat("WEIGHT_DRAWDOWN", 0.30),
			WeightAnomalies:           getEnvFloat("WEIGHT_ANOMALIES", 0.20),
			WeightSize:                getEnvFloat("WEIGHT_SIZE", 0.15),
		},

		Monitoring: MonitoringConfig{
			PrometheusPort: getEnvInt("PROMETHEUS_PORT", 8080),
			HealthPort:     getEnvInt("HEALTH_PORT", 8081),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
