package guard

import (
	"sync"
	"time"

	"github.com/ducminhle1904/trade-risk-gate/internal/config"
	"github.com/ducminhle1904/trade-risk-gate/internal/errors"
	"github.com/ducminhle1904/trade-risk-gate/internal/safety"
	"github.com/ducminhle1904/trade-risk-gate/internal/state"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

const component = "drawdown_guard"

// DrawdownGuard owns the equity curve and the trading-status state machine.
// It decides whether trading is allowed at all, independent of any candidate
// trade. State is durably saved after every mutation and reloaded at startup.
//
// Reads may run concurrently; mutating calls are serialized against each
// other and against reads by a single RWMutex.
type DrawdownGuard struct {
	mu    sync.RWMutex
	cfg   config.GuardConfig
	store state.Store
	check *safety.Validator

	status            TradingStatus
	consecutiveLosses int
	peak              float64
	peakAt            time.Time
	equity            []types.EquitySample

	// Invoked when a lazily-triggered state save fails; the readmission is
	// rolled back and retried on the next check.
	onPersistError func(error)
}

// NewDrawdownGuard creates a guard in the Active state. Call LoadState before
// first use to restore persisted state.
func NewDrawdownGuard(cfg config.GuardConfig, store state.Store) *DrawdownGuard {
	return &DrawdownGuard{
		cfg:    cfg,
		store:  store,
		check:  safety.NewValidator(),
		status: TradingStatus{Kind: StatusActive},
	}
}

// SetPersistenceErrorCallback registers a callback for save failures that
// happen outside an explicit mutating call (the lazy cooldown transition).
func (g *DrawdownGuard) SetPersistenceErrorCallback(fn func(error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onPersistError = fn
}

// LoadState restores persisted guard state. A missing record is not an
// error: the guard starts Active with the peak seeded from the first reported
// balance. An unreadable record is reported but the guard stays usable, so a
// corrupt state file never prevents startup.
func (g *DrawdownGuard) LoadState() error {
	record, err := g.store.Load()
	if err != nil {
		return errors.NewPersistenceError(component, "load", err)
	}
	if record == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.status = statusFromRecord(record.Status)
	g.consecutiveLosses = record.ConsecutiveLosses
	g.peak = record.Peak
	g.peakAt = record.PeakAt
	g.equity = append(g.equity[:0], record.Equity...)

	return nil
}

// RecordBalance appends an equity sample, updates the running peak and, when
// the drawdown limit is breached while Active, pauses trading. A drawdown
// pause is only ever lifted by an operator Resume, never by balance recovery.
func (g *DrawdownGuard) RecordBalance(balance float64) error {
	if res := g.check.ValidateBalance(balance); !res.Valid {
		return errors.NewValidationError(component, "record_balance", res.Message)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.equity = append(g.equity, types.EquitySample{Timestamp: now, Balance: balance})
	g.pruneEquity(now)

	if balance > g.peak {
		g.peak = balance
		g.peakAt = now
	}

	dd := g.drawdown()
	if g.status.Kind == StatusActive && dd >= g.cfg.MaxDrawdownPct {
		g.status = TradingStatus{
			Kind:        StatusPausedByDrawdown,
			Since:       now,
			DrawdownPct: dd,
		}
	}

	return g.save()
}

// RecordTradeOutcome updates the consecutive-loss counter and pauses trading
// when the configured streak limit is reached while Active.
func (g *DrawdownGuard) RecordTradeOutcome(outcome types.TradeOutcome) error {
	if res := g.check.ValidateRealizedReturn(outcome.RealizedReturn); !res.Valid {
		return errors.NewValidationError(component, "record_trade_outcome", res.Message)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if outcome.RealizedReturn < 0 {
		g.consecutiveLosses++
	} else {
		g.consecutiveLosses = 0
	}

	if g.status.Kind == StatusActive && g.consecutiveLosses >= g.cfg.ConsecutiveLossLimit {
		g.status = TradingStatus{
			Kind:      StatusPausedByConsecutiveLosses,
			Since:     time.Now(),
			LossCount: g.consecutiveLosses,
		}
	}

	return g.save()
}

// Pause puts the guard into ManuallyPaused. While manually paused, balance
// updates still extend the equity curve but automatic transitions are
// suppressed.
func (g *DrawdownGuard) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.status = TradingStatus{Kind: StatusManuallyPaused, Since: time.Now()}
	return g.save()
}

// Resume returns the guard to Active from any paused state. Leaving a
// consecutive-loss pause resets the streak counter.
func (g *DrawdownGuard) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status.Kind == StatusPausedByConsecutiveLosses {
		g.consecutiveLosses = 0
	}
	g.status = TradingStatus{Kind: StatusActive}
	return g.save()
}

// IsTradingAllowed reports whether the guard currently admits trading. An
// expired consecutive-loss cooldown is re-checked lazily here: the first call
// after the cooldown elapses transitions back to Active and resets the
// counter. There is no background timer.
func (g *DrawdownGuard) IsTradingAllowed() bool {
	g.mu.RLock()
	kind := g.status.Kind
	since := g.status.Since
	g.mu.RUnlock()

	if kind == StatusActive {
		return true
	}
	if kind != StatusPausedByConsecutiveLosses || time.Since(since) < g.cfg.CooldownPeriod {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Re-check under the write lock; another caller may have transitioned.
	if g.status.Kind != StatusPausedByConsecutiveLosses {
		return g.status.Kind == StatusActive
	}
	if time.Since(g.status.Since) < g.cfg.CooldownPeriod {
		return false
	}

	resumed := TradingStatus{Kind: StatusActive}
	prevStatus, prevLosses := g.status, g.consecutiveLosses
	g.status = resumed
	g.consecutiveLosses = 0

	// Readmission counts only once it is durable. If the save fails the
	// pause stands and the next check retries, so memory never runs ahead
	// of what a restart would reload.
	if err := g.save(); err != nil {
		g.status = prevStatus
		g.consecutiveLosses = prevLosses
		if g.onPersistError != nil {
			g.onPersistError(err)
		}
		return false
	}

	return true
}

// Status returns a copy of the current trading status.
func (g *DrawdownGuard) Status() TradingStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Drawdown returns the current decline from the running peak as a fraction.
func (g *DrawdownGuard) Drawdown() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.drawdown()
}

// Peak returns the running maximum of all reported balances.
func (g *DrawdownGuard) Peak() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.peak
}

// Balance returns the most recently reported balance, or 0 before the first
// report.
func (g *DrawdownGuard) Balance() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.equity) == 0 {
		return 0
	}
	return g.equity[len(g.equity)-1].Balance
}

// ConsecutiveLosses returns the current loss streak length.
func (g *DrawdownGuard) ConsecutiveLosses() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.consecutiveLosses
}

// drawdown must be called with at least a read lock held.
func (g *DrawdownGuard) drawdown() float64 {
	if g.peak <= 0 || len(g.equity) == 0 {
		return 0
	}
	return (g.peak - g.equity[len(g.equity)-1].Balance) / g.peak
}

// pruneEquity drops samples older than the retention horizon. The running
// peak is kept separately and survives pruning.
func (g *DrawdownGuard) pruneEquity(now time.Time) {
	if g.cfg.RetentionHorizon <= 0 {
		return
	}
	cutoff := now.Add(-g.cfg.RetentionHorizon)
	firstKept := 0
	for firstKept < len(g.equity) && g.equity[firstKept].Timestamp.Before(cutoff) {
		firstKept++
	}
	if firstKept > 0 {
		g.equity = append(g.equity[:0], g.equity[firstKept:]...)
	}
}

// save must be called with the write lock held. On failure the in-memory
// mutation stands and the caller receives a typed persistence error; the
// previous durable record remains intact on disk.
func (g *DrawdownGuard) save() error {
	record := &state.GuardRecord{
		Status:            statusToRecord(g.status),
		ConsecutiveLosses: g.consecutiveLosses,
		Peak:              g.peak,
		PeakAt:            g.peakAt,
		Equity:            append([]types.EquitySample(nil), g.equity...),
	}
	if err := g.store.Save(record); err != nil {
		return errors.NewPersistenceError(component, "save", err)
	}
	return nil
}

func statusToRecord(s TradingStatus) state.StatusRecord {
	return state.StatusRecord{
		Kind:        string(s.Kind),
		Since:       s.Since,
		DrawdownPct: s.DrawdownPct,
		LossCount:   s.LossCount,
	}
}

func statusFromRecord(r state.StatusRecord) TradingStatus {
	kind := StatusKind(r.Kind)
	switch kind {
	case StatusActive, StatusPausedByDrawdown, StatusPausedByConsecutiveLosses, StatusManuallyPaused:
	default:
		// Unknown variant from a newer version: fail closed until an
		// operator resumes.
		kind = StatusManuallyPaused
	}
	return TradingStatus{
		Kind:        kind,
		Since:       r.Since,
		DrawdownPct: r.DrawdownPct,
		LossCount:   r.LossCount,
	}
}
