package anomaly

import (
	"fmt"
	"math"
	"sync"

	"github.com/ducminhle1904/trade-risk-gate/internal/config"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// Kind identifies the market condition an observation refers to.
type Kind string

const (
	KindSpread     Kind = "spread"
	KindLatency    Kind = "latency"
	KindPriceSpike Kind = "price_spike"
	KindVolume     Kind = "volume"
)

// Severity grades an observation.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Observation describes one detected market anomaly.
type Observation struct {
	Kind      Kind
	Severity  Severity
	Value     float64
	Threshold float64
	Reason    string
}

// sigmaFloor keeps z-scores finite when a window has no variance.
// A flat window followed by any move is still a spike worth flagging.
const sigmaFloor = 1e-9

// Monitor tracks short rolling windows of market observations and
// classifies the latest snapshot against them.
type Monitor struct {
	mu  sync.RWMutex
	cfg config.AnomalyConfig

	returns   *window
	volumes   *window
	latencies *window

	lastMid float64
	hasMid  bool

	checksRun int64
	flagged   int64
}

func NewMonitor(cfg config.AnomalyConfig) *Monitor {
	return &Monitor{
		cfg:       cfg,
		returns:   newWindow(cfg.WindowSize),
		volumes:   newWindow(cfg.WindowSize),
		latencies: newWindow(cfg.WindowSize),
	}
}

// Check classifies the snapshot and folds it into the rolling windows.
// It returns every observation the snapshot triggered, possibly none.
// This is the ingestion path; callers that only want a judgement without
// touching the windows use Classify instead.
func (m *Monitor) Check(snap types.MarketSnapshot) []Observation {
	m.mu.Lock()
	defer m.mu.Unlock()

	obs := m.classify(snap)
	m.advance(snap)

	m.checksRun++
	if len(obs) > 0 {
		m.flagged++
	}
	return obs
}

// Classify judges the snapshot against the current windows without
// recording it, so repeated what-if calls see identical results.
func (m *Monitor) Classify(snap types.MarketSnapshot) []Observation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.classify(snap)
}

// Observe folds the snapshot into the rolling windows without judging it.
func (m *Monitor) Observe(snap types.MarketSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance(snap)
}

func (m *Monitor) classify(snap types.MarketSnapshot) []Observation {
	var obs []Observation
	obs = append(obs, m.checkSpread(snap)...)
	obs = append(obs, m.checkLatency(snap)...)
	obs = append(obs, m.checkPriceSpike(snap)...)
	obs = append(obs, m.checkVolume(snap)...)
	return obs
}

// ShouldPauseTrading reports whether any observation is critical.
func ShouldPauseTrading(obs []Observation) bool {
	for _, o := range obs {
		if o.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func (m *Monitor) checkSpread(snap types.MarketSnapshot) []Observation {
	if snap.Mid <= 0 {
		return nil
	}
	ratio := (snap.Ask - snap.Bid) / snap.Mid
	switch {
	case ratio >= m.cfg.SpreadCritical:
		return []Observation{{
			Kind:      KindSpread,
			Severity:  SeverityCritical,
			Value:     ratio,
			Threshold: m.cfg.SpreadCritical,
			Reason:    fmt.Sprintf("spread ratio %.4f%% at or above critical %.4f%%", ratio*100, m.cfg.SpreadCritical*100),
		}}
	case ratio >= m.cfg.SpreadWarning:
		return []Observation{{
			Kind:      KindSpread,
			Severity:  SeverityWarning,
			Value:     ratio,
			Threshold: m.cfg.SpreadWarning,
			Reason:    fmt.Sprintf("spread ratio %.4f%% at or above warning %.4f%%", ratio*100, m.cfg.SpreadWarning*100),
		}}
	}
	return nil
}

func (m *Monitor) checkLatency(snap types.MarketSnapshot) []Observation {
	if snap.Stale {
		return []Observation{{
			Kind:      KindLatency,
			Severity:  SeverityCritical,
			Value:     snap.APILatency.Seconds(),
			Threshold: m.cfg.LatencyCritical.Seconds(),
			Reason:    "market snapshot flagged stale",
		}}
	}
	if snap.APILatency <= 0 {
		return nil
	}
	switch {
	case snap.APILatency >= m.cfg.LatencyCritical:
		return []Observation{{
			Kind:      KindLatency,
			Severity:  SeverityCritical,
			Value:     snap.APILatency.Seconds(),
			Threshold: m.cfg.LatencyCritical.Seconds(),
			Reason:    fmt.Sprintf("API latency %s at or above critical %s", snap.APILatency, m.cfg.LatencyCritical),
		}}
	case snap.APILatency >= m.cfg.LatencyWarning:
		return []Observation{{
			Kind:      KindLatency,
			Severity:  SeverityWarning,
			Value:     snap.APILatency.Seconds(),
			Threshold: m.cfg.LatencyWarning.Seconds(),
			Reason:    fmt.Sprintf("API latency %s at or above warning %s", snap.APILatency, m.cfg.LatencyWarning),
		}}
	}
	return nil
}

func (m *Monitor) checkPriceSpike(snap types.MarketSnapshot) []Observation {
	if !m.hasMid || m.lastMid <= 0 || snap.Mid <= 0 {
		return nil
	}
	if m.returns.size() < m.cfg.MinWindowSize {
		return nil
	}
	ret := (snap.Mid - m.lastMid) / m.lastMid
	z := zScore(ret, m.returns)
	if math.Abs(z) >= m.cfg.PriceZScore {
		return []Observation{{
			Kind:      KindPriceSpike,
			Severity:  SeverityCritical,
			Value:     z,
			Threshold: m.cfg.PriceZScore,
			Reason:    fmt.Sprintf("price return %.4f%% deviates %.1f sigma from recent history", ret*100, math.Abs(z)),
		}}
	}
	return nil
}

func (m *Monitor) checkVolume(snap types.MarketSnapshot) []Observation {
	if snap.Volume < 0 {
		return nil
	}
	if m.volumes.size() < m.cfg.MinWindowSize {
		return nil
	}
	z := zScore(snap.Volume, m.volumes)
	if math.Abs(z) >= m.cfg.VolumeZScore {
		return []Observation{{
			Kind:      KindVolume,
			Severity:  SeverityCritical,
			Value:     z,
			Threshold: m.cfg.VolumeZScore,
			Reason:    fmt.Sprintf("volume %.2f deviates %.1f sigma from recent history", snap.Volume, math.Abs(z)),
		}}
	}
	return nil
}

// advance folds the snapshot into the rolling windows after checks ran,
// so a spike is judged against history that does not yet include it.
func (m *Monitor) advance(snap types.MarketSnapshot) {
	if snap.Mid > 0 {
		if m.hasMid && m.lastMid > 0 {
			m.returns.push((snap.Mid - m.lastMid) / m.lastMid)
		}
		m.lastMid = snap.Mid
		m.hasMid = true
	}
	if snap.Volume >= 0 {
		m.volumes.push(snap.Volume)
	}
	if snap.APILatency > 0 {
		m.latencies.push(snap.APILatency.Seconds())
	}
}

func zScore(v float64, w *window) float64 {
	mean, std := w.stats()
	if std < sigmaFloor {
		std = sigmaFloor
	}
	return (v - mean) / std
}

// Stats summarizes monitor activity for status reporting.
type Stats struct {
	ChecksRun      int64
	Flagged        int64
	ReturnWindow   int
	VolumeWindow   int
	AvgLatencySecs float64
}

func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	avg, _ := m.latencies.stats()
	return Stats{
		ChecksRun:      m.checksRun,
		Flagged:        m.flagged,
		ReturnWindow:   m.returns.size(),
		VolumeWindow:   m.volumes.size(),
		AvgLatencySecs: avg,
	}
}
