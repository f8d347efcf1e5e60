package guard

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trade-risk-gate/internal/config"
	"github.com/ducminhle1904/trade-risk-gate/internal/errors"
	"github.com/ducminhle1904/trade-risk-gate/internal/state"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// memStore is an in-memory state.Store with optional failure injection.
type memStore struct {
	record   *state.GuardRecord
	saves    int
	failSave bool
	failLoad bool
}

func (m *memStore) Load() (*state.GuardRecord, error) {
	if m.failLoad {
		return nil, fmt.Errorf("disk on fire")
	}
	return m.record, nil
}

func (m *memStore) Save(record *state.GuardRecord) error {
	if m.failSave {
		return fmt.Errorf("disk full")
	}
	m.saves++
	m.record = record
	return nil
}

func testGuardConfig() config.GuardConfig {
	return config.GuardConfig{
		MaxDrawdownPct:       0.20,
		ConsecutiveLossLimit: 5,
		CooldownPeriod:       24 * time.Hour,
		RetentionHorizon:     30 * 24 * time.Hour,
	}
}

func newTestGuard(t *testing.T, store state.Store) *DrawdownGuard {
	t.Helper()
	g := NewDrawdownGuard(testGuardConfig(), store)
	require.NoError(t, g.LoadState())
	return g
}

func loss() types.TradeOutcome {
	return types.TradeOutcome{StrategyID: "trend", RealizedReturn: -1.0, Timestamp: time.Now()}
}

func win() types.TradeOutcome {
	return types.TradeOutcome{StrategyID: "trend", RealizedReturn: 1.2, Timestamp: time.Now()}
}

func TestGuard_PeakIsMonotonicMaximum(t *testing.T) {
	g := newTestGuard(t, &memStore{})

	balances := []float64{1000, 1200, 900, 1500, 1100, 1500, 200}
	max := 0.0
	for _, b := range balances {
		require.NoError(t, g.RecordBalance(b))
		if b > max {
			max = b
		}
		assert.Equal(t, max, g.Peak())
	}
}

func TestGuard_DrawdownTripWire(t *testing.T) {
	g := newTestGuard(t, &memStore{})

	require.NoError(t, g.RecordBalance(1_000_000))
	assert.True(t, g.IsTradingAllowed())

	// 21% drawdown crosses the 20% limit.
	require.NoError(t, g.RecordBalance(790_000))

	status := g.Status()
	assert.Equal(t, StatusPausedByDrawdown, status.Kind)
	assert.InDelta(t, 0.21, status.DrawdownPct, 1e-9)
	assert.False(t, g.IsTradingAllowed())

	// Full recovery must not auto-resume.
	require.NoError(t, g.RecordBalance(1_000_000))
	assert.Equal(t, StatusPausedByDrawdown, g.Status().Kind)
	assert.False(t, g.IsTradingAllowed())

	// Only the operator lifts it.
	require.NoError(t, g.Resume())
	assert.True(t, g.IsTradingAllowed())
}

func TestGuard_ExactDrawdownLimitTrips(t *testing.T) {
	g := newTestGuard(t, &memStore{})

	require.NoError(t, g.RecordBalance(1000))
	require.NoError(t, g.RecordBalance(800)) // exactly 20%

	assert.Equal(t, StatusPausedByDrawdown, g.Status().Kind)
}

func TestGuard_ConsecutiveLossesTrip(t *testing.T) {
	g := newTestGuard(t, &memStore{})

	for i := 0; i < 4; i++ {
		require.NoError(t, g.RecordTradeOutcome(loss()))
		assert.True(t, g.IsTradingAllowed(), "streak of %d must not pause", i+1)
	}

	require.NoError(t, g.RecordTradeOutcome(loss()))

	status := g.Status()
	assert.Equal(t, StatusPausedByConsecutiveLosses, status.Kind)
	assert.Equal(t, 5, status.LossCount)
	assert.False(t, g.IsTradingAllowed())
}

func TestGuard_WinResetsLossStreak(t *testing.T) {
	g := newTestGuard(t, &memStore{})

	for i := 0; i < 4; i++ {
		require.NoError(t, g.RecordTradeOutcome(loss()))
	}
	require.NoError(t, g.RecordTradeOutcome(win()))
	assert.Equal(t, 0, g.ConsecutiveLosses())

	require.NoError(t, g.RecordTradeOutcome(loss()))
	assert.True(t, g.IsTradingAllowed())
}

// pausedByLossesStore seeds a store with a loss pause that started `ago` ago.
func pausedByLossesStore(ago time.Duration) *memStore {
	return &memStore{record: &state.GuardRecord{
		Status: state.StatusRecord{
			Kind:      string(StatusPausedByConsecutiveLosses),
			Since:     time.Now().Add(-ago),
			LossCount: 5,
		},
		ConsecutiveLosses: 5,
		Peak:              1000,
	}}
}

func TestGuard_CooldownNotYetElapsed(t *testing.T) {
	g := newTestGuard(t, pausedByLossesStore(23*time.Hour+59*time.Minute))

	assert.False(t, g.IsTradingAllowed())
	assert.Equal(t, StatusPausedByConsecutiveLosses, g.Status().Kind)
}

func TestGuard_CooldownElapsedReadmitsLazily(t *testing.T) {
	store := pausedByLossesStore(24*time.Hour + time.Minute)
	g := newTestGuard(t, store)

	// Still paused until someone actually checks.
	assert.Equal(t, StatusPausedByConsecutiveLosses, g.Status().Kind)

	assert.True(t, g.IsTradingAllowed())
	assert.Equal(t, StatusActive, g.Status().Kind)
	assert.Equal(t, 0, g.ConsecutiveLosses())

	// The transition was persisted.
	require.NotNil(t, store.record)
	assert.Equal(t, string(StatusActive), store.record.Status.Kind)
	assert.Equal(t, 0, store.record.ConsecutiveLosses)
}

func TestGuard_ReadmitNotDurableStaysPaused(t *testing.T) {
	store := pausedByLossesStore(25 * time.Hour)
	store.failSave = true
	g := newTestGuard(t, store)

	var reported error
	g.SetPersistenceErrorCallback(func(err error) { reported = err })

	assert.False(t, g.IsTradingAllowed())
	assert.Equal(t, StatusPausedByConsecutiveLosses, g.Status().Kind)
	require.Error(t, reported)
	assert.True(t, errors.IsPersistence(reported))

	// Once the store recovers the next check readmits.
	store.failSave = false
	assert.True(t, g.IsTradingAllowed())
	assert.Equal(t, StatusActive, g.Status().Kind)
}

func TestGuard_ManualPauseOverridesAutomaticTransitions(t *testing.T) {
	g := newTestGuard(t, &memStore{})

	require.NoError(t, g.RecordBalance(1000))
	require.NoError(t, g.Pause())
	assert.Equal(t, StatusManuallyPaused, g.Status().Kind)

	// A drawdown breach while manually paused updates the curve but not
	// the status.
	require.NoError(t, g.RecordBalance(500))
	assert.Equal(t, StatusManuallyPaused, g.Status().Kind)
	assert.InDelta(t, 0.5, g.Drawdown(), 1e-9)

	require.NoError(t, g.Resume())
	assert.True(t, g.IsTradingAllowed())
}

func TestGuard_StateSavedAfterEveryMutation(t *testing.T) {
	store := &memStore{}
	g := newTestGuard(t, store)

	require.NoError(t, g.RecordBalance(1000))
	require.NoError(t, g.RecordTradeOutcome(loss()))
	require.NoError(t, g.Pause())
	require.NoError(t, g.Resume())

	assert.Equal(t, 4, store.saves)
	assert.Equal(t, 1000.0, store.record.Peak)
}

func TestGuard_RestartRestoresPauseAndPeak(t *testing.T) {
	dir := t.TempDir()
	fileStore, err := state.NewFileStore(dir, "acct")
	require.NoError(t, err)

	first := newTestGuard(t, fileStore)
	require.NoError(t, first.RecordBalance(1_000_000))
	require.NoError(t, first.RecordBalance(790_000))
	require.False(t, first.IsTradingAllowed())

	// Fresh instance over the same store: the pause must survive.
	second := newTestGuard(t, fileStore)
	assert.False(t, second.IsTradingAllowed())
	assert.Equal(t, StatusPausedByDrawdown, second.Status().Kind)
	assert.Equal(t, 1_000_000.0, second.Peak())
}

func TestGuard_UnreadableStateStartsActive(t *testing.T) {
	g := NewDrawdownGuard(testGuardConfig(), &memStore{failLoad: true})

	err := g.LoadState()
	assert.True(t, errors.IsPersistence(err))
	assert.True(t, g.IsTradingAllowed())
	assert.Equal(t, StatusActive, g.Status().Kind)
}

func TestGuard_UnknownStatusVariantFailsClosed(t *testing.T) {
	store := &memStore{record: &state.GuardRecord{
		Status: state.StatusRecord{Kind: "paused_by_solar_flare", Since: time.Now()},
	}}
	g := newTestGuard(t, store)

	assert.False(t, g.IsTradingAllowed())
	assert.Equal(t, StatusManuallyPaused, g.Status().Kind)
}

func TestGuard_SaveFailureReturnsTypedErrorKeepsMemoryState(t *testing.T) {
	store := &memStore{failSave: true}
	g := newTestGuard(t, store)

	err := g.RecordBalance(1000)
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))

	// The in-memory mutation stands; the caller decides how to react.
	assert.Equal(t, 1000.0, g.Peak())
}

func TestGuard_RejectsInvalidInputs(t *testing.T) {
	g := newTestGuard(t, &memStore{})

	assert.True(t, errors.IsValidation(g.RecordBalance(-5)))
	assert.True(t, errors.IsValidation(g.RecordBalance(math.NaN())))
	assert.True(t, errors.IsValidation(g.RecordBalance(math.Inf(1))))

	bad := types.TradeOutcome{StrategyID: "trend", RealizedReturn: math.NaN()}
	assert.True(t, errors.IsValidation(g.RecordTradeOutcome(bad)))
}

func TestGuard_EquityPruningPreservesPeak(t *testing.T) {
	cfg := testGuardConfig()
	cfg.RetentionHorizon = time.Hour
	store := &memStore{record: &state.GuardRecord{
		Status: state.StatusRecord{Kind: string(StatusActive)},
		Peak:   5000,
		PeakAt: time.Now().Add(-48 * time.Hour),
		Equity: []types.EquitySample{
			{Timestamp: time.Now().Add(-47 * time.Hour), Balance: 5000},
		},
	}}
	g := NewDrawdownGuard(cfg, store)
	require.NoError(t, g.LoadState())

	require.NoError(t, g.RecordBalance(4000))

	// The ancient sample is gone but the peak survives pruning.
	assert.Len(t, store.record.Equity, 1)
	assert.Equal(t, 5000.0, g.Peak())
	assert.InDelta(t, 0.2, g.Drawdown(), 1e-9)
}
