package gate

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ducminhle1904/trade-risk-gate/internal/anomaly"
	"github.com/ducminhle1904/trade-risk-gate/internal/config"
	"github.com/ducminhle1904/trade-risk-gate/internal/errors"
	"github.com/ducminhle1904/trade-risk-gate/internal/guard"
	"github.com/ducminhle1904/trade-risk-gate/internal/safety"
	"github.com/ducminhle1904/trade-risk-gate/internal/sizing"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

const component = "risk_gate"

// anomalyMonitor is the slice of the monitor the gate needs.
type anomalyMonitor interface {
	Classify(types.MarketSnapshot) []anomaly.Observation
	Check(types.MarketSnapshot) []anomaly.Observation
}

// positionSizer computes a capital fraction from realized history.
type positionSizer interface {
	Fraction([]types.TradeOutcome, sizing.Input) sizing.Result
}

// RiskGate is the single entry point for trade admission. It combines the
// drawdown guard, the anomaly monitor and the position sizer into one
// verdict per candidate trade, and fails closed on every doubtful path.
type RiskGate struct {
	cfg         config.GateConfig
	maxFraction float64

	guard   *guard.DrawdownGuard
	monitor anomalyMonitor
	sizer   positionSizer
	check   *safety.Validator

	mu          sync.Mutex
	evaluations int64
	approved    int64
	conditional int64
	denied      int64
}

func NewRiskGate(cfg config.Config, g *guard.DrawdownGuard, m *anomaly.Monitor, s *sizing.Sizer) *RiskGate {
	return &RiskGate{
		cfg:         cfg.Gate,
		maxFraction: cfg.Sizing.MaxFraction,
		guard:       g,
		monitor:     m,
		sizer:       s,
		check:       safety.NewValidator(),
	}
}

// Evaluate rules on one candidate trade. It reads guard and monitor state
// but mutates nothing, so callers may evaluate the same cycle repeatedly.
// When an input is invalid the verdict is Denied and the validation error
// is returned alongside it; the verdict never defaults to Approved.
func (rg *RiskGate) Evaluate(trade types.CandidateTrade, confidence float64, snap types.MarketSnapshot, history []types.TradeOutcome) (*Verdict, error) {
	now := time.Now()

	if res := rg.check.ValidateCandidate(trade); !res.Valid {
		return rg.deny(now, nil, res.Message), errors.NewValidationError(component, "evaluate", res.Message)
	}
	if res := rg.check.ValidateConfidence(confidence); !res.Valid {
		return rg.deny(now, nil, res.Message), errors.NewValidationError(component, "evaluate", res.Message)
	}
	if res := rg.check.ValidateSnapshot(snap); !res.Valid {
		return rg.deny(now, nil, res.Message), errors.NewValidationError(component, "evaluate", res.Message)
	}

	if !rg.guard.IsTradingAllowed() {
		status := rg.guard.Status()
		v := rg.deny(now, nil, "trading paused: "+status.String())
		v.Status = status
		return v, nil
	}
	status := rg.guard.Status()

	obs := rg.monitor.Classify(snap)
	if anomaly.ShouldPauseTrading(obs) {
		v := rg.deny(now, obs, criticalReasons(obs)...)
		v.Status = status
		return v, nil
	}

	if confidence < rg.cfg.MinConfidence {
		v := rg.deny(now, obs, fmt.Sprintf("model confidence %.2f below minimum %.2f", confidence, rg.cfg.MinConfidence))
		v.Status = status
		return v, nil
	}

	res := rg.sizer.Fraction(history, sizing.Input{StrategyID: trade.StrategyID})
	score := rg.riskScore(confidence, rg.guard.Drawdown(), obs, res.Fraction)

	v := &Verdict{
		RiskScore:    score,
		Observations: obs,
		Status:       status,
		Sizing:       res,
		EvaluatedAt:  now,
	}

	warnings := warningCount(obs)
	if warnings > 0 || score > rg.cfg.ConditionalRiskThreshold {
		v.Decision = DecisionConditional
		v.PositionSizeFraction = res.Fraction * rg.cfg.ConditionalSizeMultiplier
		if warnings > 0 {
			v.Reasons = append(v.Reasons, fmt.Sprintf("%d warning anomalies present", warnings))
		}
		if score > rg.cfg.ConditionalRiskThreshold {
			v.Reasons = append(v.Reasons, fmt.Sprintf("risk score %.2f above conditional threshold %.2f", score, rg.cfg.ConditionalRiskThreshold))
		}
		rg.count(DecisionConditional)
		return v, nil
	}

	v.Decision = DecisionApproved
	v.PositionSizeFraction = res.Fraction
	rg.count(DecisionApproved)
	return v, nil
}

// ObserveMarket folds a received snapshot into the anomaly windows. The
// market-data path calls this once per snapshot, independent of how many
// evaluations that snapshot serves.
func (rg *RiskGate) ObserveMarket(snap types.MarketSnapshot) []anomaly.Observation {
	return rg.monitor.Check(snap)
}

// RecordBalance forwards a real account balance to the drawdown guard.
func (rg *RiskGate) RecordBalance(balance float64) error {
	return rg.guard.RecordBalance(balance)
}

// RecordTradeOutcome forwards a realized trade result to the drawdown guard.
func (rg *RiskGate) RecordTradeOutcome(outcome types.TradeOutcome) error {
	return rg.guard.RecordTradeOutcome(outcome)
}

// Pause halts admission until an operator calls Resume.
func (rg *RiskGate) Pause() error {
	return rg.guard.Pause()
}

// Resume lifts any pause and re-admits trading.
func (rg *RiskGate) Resume() error {
	return rg.guard.Resume()
}

// Status returns the guard's current trading status.
func (rg *RiskGate) Status() guard.TradingStatus {
	return rg.guard.Status()
}

func (rg *RiskGate) deny(at time.Time, obs []anomaly.Observation, reasons ...string) *Verdict {
	rg.count(DecisionDenied)
	return &Verdict{
		Decision:     DecisionDenied,
		RiskScore:    1.0,
		Reasons:      reasons,
		Observations: obs,
		Status:       rg.guard.Status(),
		EvaluatedAt:  at,
	}
}

// riskScore blends the danger signals into [0,1]. Each component is already
// in [0,1]; dividing by the weight sum keeps the blend there for any
// configured weights.
func (rg *RiskGate) riskScore(confidence, drawdown float64, obs []anomaly.Observation, fraction float64) float64 {
	c := rg.cfg
	wsum := c.WeightConfidence + c.WeightDrawdown + c.WeightAnomalies + c.WeightSize
	if wsum <= 0 {
		return 0
	}

	// Each check fires at most one observation per call, so four is the
	// ceiling on simultaneous warnings.
	pressure := math.Min(1, float64(warningCount(obs))/4.0)

	sizeUsed := 0.0
	if rg.maxFraction > 0 {
		sizeUsed = clamp01(fraction / rg.maxFraction)
	}

	score := c.WeightConfidence*(1-confidence) +
		c.WeightDrawdown*clamp01(drawdown) +
		c.WeightAnomalies*pressure +
		c.WeightSize*sizeUsed

	return clamp01(score / wsum)
}

func warningCount(obs []anomaly.Observation) int {
	n := 0
	for _, o := range obs {
		if o.Severity == anomaly.SeverityWarning {
			n++
		}
	}
	return n
}

func criticalReasons(obs []anomaly.Observation) []string {
	var reasons []string
	for _, o := range obs {
		if o.Severity == anomaly.SeverityCritical {
			reasons = append(reasons, o.Reason)
		}
	}
	return reasons
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (rg *RiskGate) count(d Decision) {
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.evaluations++
	switch d {
	case DecisionApproved:
		rg.approved++
	case DecisionConditional:
		rg.conditional++
	case DecisionDenied:
		rg.denied++
	}
}

// Stats summarizes gate activity and the guard state behind it.
type Stats struct {
	Evaluations       int64
	Approved          int64
	Conditional       int64
	Denied            int64
	Status            guard.TradingStatus
	Drawdown          float64
	Peak              float64
	ConsecutiveLosses int
}

func (rg *RiskGate) Stats() Stats {
	rg.mu.Lock()
	s := Stats{
		Evaluations: rg.evaluations,
		Approved:    rg.approved,
		Conditional: rg.conditional,
		Denied:      rg.denied,
	}
	rg.mu.Unlock()

	s.Status = rg.guard.Status()
	s.Drawdown = rg.guard.Drawdown()
	s.Peak = rg.guard.Peak()
	s.ConsecutiveLosses = rg.guard.ConsecutiveLosses()
	return s
}
