package sizing

import (
	"math"

	"github.com/ducminhle1904/trade-risk-gate/internal/config"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// Sizer computes the capital fraction to risk on the next trade using the
// Kelly criterion over a lookback window of realized outcomes. It holds no
// state of its own; the outcome history belongs to the caller.
type Sizer struct {
	cfg config.SizingConfig
}

// NewSizer creates a position sizer with the given limits.
func NewSizer(cfg config.SizingConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// Input selects and adjusts the history the sizer considers.
type Input struct {
	// StrategyID restricts the history to one strategy; empty means all.
	StrategyID string

	// VolatilityRatio scales the final fraction inversely with instrument
	// risk (current volatility over baseline). Zero means no adjustment.
	VolatilityRatio float64
}

// Result carries the computed fraction plus the aggregates behind it, so the
// caller can log a defaulted result differently from a computed one.
type Result struct {
	Fraction    float64
	UsedDefault bool
	SampleSize  int
	WinRate     float64
	AvgWin      float64
	AvgLoss     float64
	RawKelly    float64
}

// Fraction returns the bounded capital fraction for the next trade. It is a
// pure function of its inputs: empty or thin history yields the configured
// default, and the result is always within [0, MaxFraction].
func (s *Sizer) Fraction(history []types.TradeOutcome, in Input) Result {
	sample := s.window(history, in.StrategyID)

	if len(sample) < s.cfg.MinTradesRequired {
		return Result{
			Fraction:    clamp(s.cfg.DefaultFraction, s.cfg.MaxFraction),
			UsedDefault: true,
			SampleSize:  len(sample),
		}
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, outcome := range sample {
		if outcome.RealizedReturn > 0 {
			wins++
			winSum += outcome.RealizedReturn
		} else if outcome.RealizedReturn < 0 {
			losses++
			lossSum += -outcome.RealizedReturn
		}
	}

	res := Result{
		SampleSize: len(sample),
		WinRate:    float64(wins) / float64(len(sample)),
	}
	if wins > 0 {
		res.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		res.AvgLoss = lossSum / float64(losses)
	}

	fraction := s.rawFraction(&res)

	if in.VolatilityRatio > 0 {
		fraction /= in.VolatilityRatio
	}

	res.Fraction = clamp(fraction, s.cfg.MaxFraction)
	return res
}

// rawFraction computes the safety-scaled Kelly fraction before volatility
// adjustment and the final clamp.
func (s *Sizer) rawFraction(res *Result) float64 {
	// No losses observed: the Kelly ratio is undefined, bet the ceiling.
	if res.AvgLoss == 0 {
		res.RawKelly = math.Inf(1)
		return s.cfg.MaxFraction
	}

	ratio := res.AvgWin / res.AvgLoss
	if ratio == 0 {
		// No wins at all; the formula below would divide by zero.
		res.RawKelly = -1
		return 0
	}

	res.RawKelly = (res.WinRate*ratio - (1 - res.WinRate)) / ratio
	if res.RawKelly <= 0 {
		// Negative edge: the formula itself advises not to bet.
		return 0
	}

	return res.RawKelly * s.cfg.SafetyFactor
}

// window returns the most recent LookbackWindow outcomes, optionally filtered
// by strategy. History is ordered oldest first.
func (s *Sizer) window(history []types.TradeOutcome, strategyID string) []types.TradeOutcome {
	filtered := history
	if strategyID != "" {
		filtered = make([]types.TradeOutcome, 0, len(history))
		for _, outcome := range history {
			if outcome.StrategyID == strategyID {
				filtered = append(filtered, outcome)
			}
		}
	}

	if len(filtered) > s.cfg.LookbackWindow {
		filtered = filtered[len(filtered)-s.cfg.LookbackWindow:]
	}
	return filtered
}

func clamp(fraction, max float64) float64 {
	if math.IsNaN(fraction) || fraction < 0 {
		return 0
	}
	if fraction > max {
		return max
	}
	return fraction
}
