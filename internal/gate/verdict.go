package gate

import (
	"time"

	"github.com/ducminhle1904/trade-risk-gate/internal/anomaly"
	"github.com/ducminhle1904/trade-risk-gate/internal/guard"
	"github.com/ducminhle1904/trade-risk-gate/internal/sizing"
)

// Decision is the outcome class of a verdict.
type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionConditional Decision = "conditional"
	DecisionDenied      Decision = "denied"
)

// Verdict is the engine's sole output: one immutable admission ruling per
// candidate trade, with everything an auditor needs to reconstruct it.
type Verdict struct {
	Decision             Decision
	RiskScore            float64
	PositionSizeFraction float64
	Reasons              []string
	Observations         []anomaly.Observation
	Status               guard.TradingStatus
	Sizing               sizing.Result
	EvaluatedAt          time.Time
}

// Admitted reports whether the execution layer may place an order.
func (v *Verdict) Admitted() bool {
	return v.Decision == DecisionApproved || v.Decision == DecisionConditional
}
