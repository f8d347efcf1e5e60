package reporting

import (
	"sync"
	"time"

	"github.com/ducminhle1904/trade-risk-gate/internal/gate"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// VerdictRecord is one audit entry: a candidate trade and the ruling it got.
type VerdictRecord struct {
	Timestamp    time.Time
	StrategyID   string
	Side         string
	Decision     string
	RiskScore    float64
	SizeFraction float64
	Reasons      []string
	Anomalies    []AnomalyRecord
	Status       string
}

// AnomalyRecord is a flattened anomaly observation for reporting.
type AnomalyRecord struct {
	Timestamp time.Time
	Kind      string
	Severity  string
	Value     float64
	Reason    string
}

// AuditTrail collects verdicts, anomalies and equity samples for export.
// Entries beyond the capacity are dropped oldest-first.
type AuditTrail struct {
	mu        sync.Mutex
	capacity  int
	verdicts  []VerdictRecord
	anomalies []AnomalyRecord
	equity    []types.EquitySample
}

func NewAuditTrail(capacity int) *AuditTrail {
	if capacity <= 0 {
		capacity = 10000
	}
	return &AuditTrail{capacity: capacity}
}

// AddVerdict records one ruling for a candidate trade.
func (a *AuditTrail) AddVerdict(trade types.CandidateTrade, v *gate.Verdict) {
	rec := VerdictRecord{
		Timestamp:    v.EvaluatedAt,
		StrategyID:   trade.StrategyID,
		Side:         string(trade.Side),
		Decision:     string(v.Decision),
		RiskScore:    v.RiskScore,
		SizeFraction: v.PositionSizeFraction,
		Reasons:      append([]string(nil), v.Reasons...),
		Status:       string(v.Status.Kind),
	}
	for _, o := range v.Observations {
		rec.Anomalies = append(rec.Anomalies, AnomalyRecord{
			Timestamp: v.EvaluatedAt,
			Kind:      string(o.Kind),
			Severity:  string(o.Severity),
			Value:     o.Value,
			Reason:    o.Reason,
		})
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.verdicts = append(a.verdicts, rec)
	a.anomalies = append(a.anomalies, rec.Anomalies...)
	a.trim()
}

// AddEquity records one balance sample.
func (a *AuditTrail) AddEquity(sample types.EquitySample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.equity = append(a.equity, sample)
	a.trim()
}

func (a *AuditTrail) trim() {
	if n := len(a.verdicts) - a.capacity; n > 0 {
		a.verdicts = a.verdicts[n:]
	}
	if n := len(a.anomalies) - a.capacity; n > 0 {
		a.anomalies = a.anomalies[n:]
	}
	if n := len(a.equity) - a.capacity; n > 0 {
		a.equity = a.equity[n:]
	}
}

// Verdicts returns a copy of the recorded verdicts.
func (a *AuditTrail) Verdicts() []VerdictRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]VerdictRecord(nil), a.verdicts...)
}

// Anomalies returns a copy of the recorded anomaly observations.
func (a *AuditTrail) Anomalies() []AnomalyRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AnomalyRecord(nil), a.anomalies...)
}

// Equity returns a copy of the recorded balance samples.
func (a *AuditTrail) Equity() []types.EquitySample {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.EquitySample(nil), a.equity...)
}

// Summary aggregates the trail for console and workbook output.
type Summary struct {
	Total       int
	Approved    int
	Conditional int
	Denied      int
	AvgScore    float64
}

func (a *AuditTrail) Summarize() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{Total: len(a.verdicts)}
	var scoreSum float64
	for _, v := range a.verdicts {
		scoreSum += v.RiskScore
		switch v.Decision {
		case string(gate.DecisionApproved):
			s.Approved++
		case string(gate.DecisionConditional):
			s.Conditional++
		case string(gate.DecisionDenied):
			s.Denied++
		}
	}
	if s.Total > 0 {
		s.AvgScore = scoreSum / float64(s.Total)
	}
	return s
}
