package main

import (
	"math/rand"
	"time"

	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// simulator produces synthetic market data, model output and fills so the
// gate can be exercised end to end without an exchange connection.
type simulator struct {
	rng        *rand.Rand
	mid        float64
	balance    float64
	history    []types.TradeOutcome
	strategies []string
}

func newSimulator(rng *rand.Rand, startBalance float64) *simulator {
	return &simulator{
		rng:        rng,
		mid:        100,
		balance:    startBalance,
		strategies: []string{"trend", "meanrev"},
	}
}

func (s *simulator) nextSnapshot() types.MarketSnapshot {
	// Random walk with occasional stress events.
	s.mid *= 1 + s.rng.NormFloat64()*0.002
	if s.rng.Float64() < 0.01 {
		// Price shock
		s.mid *= 1 + (s.rng.Float64()-0.5)*0.06
	}

	spreadRatio := 0.0002 + s.rng.Float64()*0.0008
	if s.rng.Float64() < 0.03 {
		spreadRatio = 0.003 + s.rng.Float64()*0.004
	}

	volume := 1000 + s.rng.Float64()*200
	if s.rng.Float64() < 0.02 {
		volume *= 5 + s.rng.Float64()*10
	}

	latency := time.Duration(20+s.rng.Intn(180)) * time.Millisecond
	if s.rng.Float64() < 0.02 {
		latency = time.Duration(1+s.rng.Intn(4)) * time.Second
	}

	half := s.mid * spreadRatio / 2
	return types.MarketSnapshot{
		Bid:        s.mid - half,
		Ask:        s.mid + half,
		Mid:        s.mid,
		LastPrice:  s.mid,
		Volume:     volume,
		APILatency: latency,
		ObservedAt: time.Now(),
		Stale:      s.rng.Float64() < 0.005,
	}
}

func (s *simulator) nextCandidate() types.CandidateTrade {
	side := types.SideBuy
	if s.rng.Float64() < 0.5 {
		side = types.SideSell
	}
	return types.CandidateTrade{
		StrategyID: s.strategies[s.rng.Intn(len(s.strategies))],
		Side:       side,
		EntryPrice: s.mid,
	}
}

func (s *simulator) nextConfidence() float64 {
	return 0.4 + s.rng.Float64()*0.55
}

// fill simulates the realized result of an admitted trade and moves the
// account balance accordingly.
func (s *simulator) fill(trade types.CandidateTrade, fraction float64) types.TradeOutcome {
	ret := -1.0
	if s.rng.Float64() < 0.55 {
		ret = 1.5
	}

	// Returns are in R multiples; one R is one percent of equity here.
	s.balance *= 1 + fraction*ret*0.01

	outcome := types.TradeOutcome{
		StrategyID:     trade.StrategyID,
		RealizedReturn: ret,
		Timestamp:      time.Now(),
	}
	s.history = append(s.history, outcome)
	if len(s.history) > 500 {
		s.history = s.history[len(s.history)-500:]
	}
	return outcome
}
