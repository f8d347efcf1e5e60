package gate

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trade-risk-gate/internal/anomaly"
	"github.com/ducminhle1904/trade-risk-gate/internal/config"
	"github.com/ducminhle1904/trade-risk-gate/internal/errors"
	"github.com/ducminhle1904/trade-risk-gate/internal/guard"
	"github.com/ducminhle1904/trade-risk-gate/internal/sizing"
	"github.com/ducminhle1904/trade-risk-gate/internal/state"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

type stubStore struct {
	record   *state.GuardRecord
	failSave bool
}

func (s *stubStore) Load() (*state.GuardRecord, error) { return s.record, nil }

func (s *stubStore) Save(record *state.GuardRecord) error {
	if s.failSave {
		return fmt.Errorf("disk full")
	}
	s.record = record
	return nil
}

// countingMonitor returns canned observations and counts classify calls.
type countingMonitor struct {
	obs           []anomaly.Observation
	classifyCalls int
	checkCalls    int
}

func (c *countingMonitor) Classify(types.MarketSnapshot) []anomaly.Observation {
	c.classifyCalls++
	return c.obs
}

func (c *countingMonitor) Check(types.MarketSnapshot) []anomaly.Observation {
	c.checkCalls++
	return c.obs
}

type countingSizer struct {
	res   sizing.Result
	calls int
}

func (c *countingSizer) Fraction([]types.TradeOutcome, sizing.Input) sizing.Result {
	c.calls++
	return c.res
}

func testConfig() config.Config {
	return config.Config{
		AccountID: "acct-test",
		Sizing: config.SizingConfig{
			SafetyFactor:      0.5,
			MaxFraction:       0.1,
			LookbackWindow:    50,
			MinTradesRequired: 10,
			DefaultFraction:   0.01,
		},
		Guard: config.GuardConfig{
			MaxDrawdownPct:       0.20,
			ConsecutiveLossLimit: 5,
			CooldownPeriod:       24 * time.Hour,
			RetentionHorizon:     720 * time.Hour,
		},
		Anomaly: config.AnomalyConfig{
			WindowSize:      50,
			MinWindowSize:   10,
			SpreadWarning:   0.003,
			SpreadCritical:  0.005,
			LatencyWarning:  time.Second,
			LatencyCritical: 3 * time.Second,
			PriceZScore:     3.0,
			VolumeZScore:    3.0,
		},
		Gate: config.GateConfig{
			MinConfidence:             0.6,
			ConditionalRiskThreshold:  0.6,
			ConditionalSizeMultiplier: 0.5,
			WeightConfidence:          0.35,
			WeightDrawdown:            0.30,
			WeightAnomalies:           0.20,
			WeightSize:                0.15,
		},
	}
}

func newTestGate(t *testing.T, cfg config.Config, store state.Store) *RiskGate {
	t.Helper()
	g := guard.NewDrawdownGuard(cfg.Guard, store)
	require.NoError(t, g.LoadState())
	return NewRiskGate(cfg, g, anomaly.NewMonitor(cfg.Anomaly), sizing.NewSizer(cfg.Sizing))
}

func candidate() types.CandidateTrade {
	return types.CandidateTrade{StrategyID: "trend", Side: types.SideBuy, EntryPrice: 100}
}

func cleanSnapshot() types.MarketSnapshot {
	return types.MarketSnapshot{
		Bid:        99.99,
		Ask:        100.01,
		Mid:        100,
		LastPrice:  100,
		Volume:     1000,
		APILatency: 50 * time.Millisecond,
		ObservedAt: time.Now(),
	}
}

// winningHistory builds the reference record: 50 trades, 60% win rate,
// average win 1.5x the average loss.
func winningHistory() []types.TradeOutcome {
	var out []types.TradeOutcome
	for i := 0; i < 30; i++ {
		out = append(out, types.TradeOutcome{StrategyID: "trend", RealizedReturn: 1.5})
	}
	for i := 0; i < 20; i++ {
		out = append(out, types.TradeOutcome{StrategyID: "trend", RealizedReturn: -1.0})
	}
	return out
}

func TestEvaluate_ApprovedEndToEnd(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})
	require.NoError(t, rg.RecordBalance(10000))

	v, err := rg.Evaluate(candidate(), 0.8, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	assert.Equal(t, DecisionApproved, v.Decision)
	assert.InDelta(t, 0.1, v.PositionSizeFraction, 1e-9)
	assert.InDelta(t, 1.0/3.0, v.Sizing.RawKelly, 1e-6)
	assert.True(t, v.Admitted())
	assert.Equal(t, guard.StatusActive, v.Status.Kind)
	assert.Empty(t, v.Observations)
	assert.GreaterOrEqual(t, v.RiskScore, 0.0)
	assert.LessOrEqual(t, v.RiskScore, 1.0)
}

func TestEvaluate_GuardPauseShortCircuits(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})
	monitor := &countingMonitor{}
	sizer := &countingSizer{}
	rg.monitor = monitor
	rg.sizer = sizer

	require.NoError(t, rg.Pause())

	v, err := rg.Evaluate(candidate(), 0.9, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	assert.Equal(t, DecisionDenied, v.Decision)
	assert.Equal(t, 0.0, v.PositionSizeFraction)
	assert.Equal(t, guard.StatusManuallyPaused, v.Status.Kind)
	require.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], "paused")

	// Neither anomaly checks nor sizing ran for a paused account.
	assert.Equal(t, 0, monitor.classifyCalls)
	assert.Equal(t, 0, sizer.calls)
}

func TestEvaluate_CriticalAnomalyDenies(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})
	sizer := &countingSizer{}
	rg.sizer = sizer
	rg.monitor = &countingMonitor{obs: []anomaly.Observation{
		{Kind: anomaly.KindLatency, Severity: anomaly.SeverityCritical, Reason: "API latency 5s at or above critical 3s"},
	}}

	v, err := rg.Evaluate(candidate(), 0.9, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	assert.Equal(t, DecisionDenied, v.Decision)
	assert.Equal(t, 0.0, v.PositionSizeFraction)
	require.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], "latency")
	assert.Len(t, v.Observations, 1)
	assert.Equal(t, 0, sizer.calls)
}

func TestEvaluate_LowConfidenceDenies(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})
	sizer := &countingSizer{}
	rg.sizer = sizer

	v, err := rg.Evaluate(candidate(), 0.45, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	assert.Equal(t, DecisionDenied, v.Decision)
	require.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], "confidence")
	assert.Equal(t, 0, sizer.calls)
}

func TestEvaluate_WarningAnomalyGoesConditional(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})
	rg.monitor = &countingMonitor{obs: []anomaly.Observation{
		{Kind: anomaly.KindSpread, Severity: anomaly.SeverityWarning, Reason: "spread ratio elevated"},
	}}

	v, err := rg.Evaluate(candidate(), 0.8, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	assert.Equal(t, DecisionConditional, v.Decision)
	assert.True(t, v.Admitted())
	// Half of the clamped 0.1 full size.
	assert.InDelta(t, 0.05, v.PositionSizeFraction, 1e-9)
	require.NotEmpty(t, v.Reasons)
	assert.Contains(t, v.Reasons[0], "warning")
}

func TestEvaluate_HighRiskScoreGoesConditional(t *testing.T) {
	cfg := testConfig()
	cfg.Gate.ConditionalRiskThreshold = 0.2
	rg := newTestGate(t, cfg, &stubStore{})

	// Clean conditions, but the blended score 0.22 clears the lowered bar.
	v, err := rg.Evaluate(candidate(), 0.8, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	assert.Equal(t, DecisionConditional, v.Decision)
	assert.InDelta(t, 0.05, v.PositionSizeFraction, 1e-9)
	require.Len(t, v.Reasons, 1)
	assert.Contains(t, v.Reasons[0], "risk score")
}

func TestEvaluate_RiskScoreComposition(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})

	v, err := rg.Evaluate(candidate(), 0.8, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	// 0.35*(1-0.8) + 0.30*0 + 0.20*0 + 0.15*(0.1/0.1) over weight sum 1.
	assert.InDelta(t, 0.22, v.RiskScore, 1e-9)
}

func TestEvaluate_InvalidInputsFailClosed(t *testing.T) {
	cases := []struct {
		name       string
		trade      types.CandidateTrade
		confidence float64
		snap       types.MarketSnapshot
	}{
		{"confidence above one", candidate(), 1.5, cleanSnapshot()},
		{"confidence NaN", candidate(), math.NaN(), cleanSnapshot()},
		{"empty strategy", types.CandidateTrade{Side: types.SideBuy, EntryPrice: 100}, 0.8, cleanSnapshot()},
		{"crossed book", candidate(), 0.8, types.MarketSnapshot{Bid: 101, Ask: 100, Mid: 100.5, LastPrice: 100, Volume: 10, ObservedAt: time.Now()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rg := newTestGate(t, testConfig(), &stubStore{})

			v, err := rg.Evaluate(tc.trade, tc.confidence, tc.snap, winningHistory())
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			require.NotNil(t, v)
			assert.Equal(t, DecisionDenied, v.Decision)
			assert.Equal(t, 0.0, v.PositionSizeFraction)
		})
	}
}

func TestEvaluate_PersistenceFailureNeverApproves(t *testing.T) {
	// Cooldown has expired but readmission cannot be made durable, so the
	// pause must stand and the trade must not go through.
	store := &stubStore{
		record: &state.GuardRecord{
			Status: state.StatusRecord{
				Kind:      string(guard.StatusPausedByConsecutiveLosses),
				Since:     time.Now().Add(-25 * time.Hour),
				LossCount: 5,
			},
			ConsecutiveLosses: 5,
			Peak:              10000,
		},
		failSave: true,
	}
	rg := newTestGate(t, testConfig(), store)

	v, err := rg.Evaluate(candidate(), 0.9, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	assert.Equal(t, DecisionDenied, v.Decision)
	assert.False(t, v.Admitted())
	assert.Equal(t, guard.StatusPausedByConsecutiveLosses, v.Status.Kind)
}

func TestEvaluate_IsRepeatable(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})

	first, err := rg.Evaluate(candidate(), 0.8, cleanSnapshot(), winningHistory())
	require.NoError(t, err)
	second, err := rg.Evaluate(candidate(), 0.8, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	assert.Equal(t, first.Decision, second.Decision)
	assert.Equal(t, first.PositionSizeFraction, second.PositionSizeFraction)
	assert.InDelta(t, first.RiskScore, second.RiskScore, 1e-12)
}

func TestObserveMarket_FeedsMonitor(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})
	monitor := &countingMonitor{}
	rg.monitor = monitor

	rg.ObserveMarket(cleanSnapshot())
	rg.ObserveMarket(cleanSnapshot())

	assert.Equal(t, 2, monitor.checkCalls)
	assert.Equal(t, 0, monitor.classifyCalls)
}

func TestStats_CountsDecisions(t *testing.T) {
	rg := newTestGate(t, testConfig(), &stubStore{})
	require.NoError(t, rg.RecordBalance(10000))

	_, err := rg.Evaluate(candidate(), 0.8, cleanSnapshot(), winningHistory())
	require.NoError(t, err)
	_, err = rg.Evaluate(candidate(), 0.4, cleanSnapshot(), winningHistory())
	require.NoError(t, err)

	s := rg.Stats()
	assert.Equal(t, int64(2), s.Evaluations)
	assert.Equal(t, int64(1), s.Approved)
	assert.Equal(t, int64(1), s.Denied)
	assert.Equal(t, guard.StatusActive, s.Status.Kind)
	assert.Equal(t, 10000.0, s.Peak)
}
