package types

import "time"

// TradeSide identifies the direction of a candidate trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// CandidateTrade is a trade proposal produced by the strategy/signal layer.
type CandidateTrade struct {
	StrategyID string
	Side       TradeSide
	EntryPrice float64
}

// MarketSnapshot is one observation of the order book and last trade,
// supplied by the market-data layer on every decision cycle.
type MarketSnapshot struct {
	Bid        float64
	Ask        float64
	Mid        float64
	LastPrice  float64
	Volume     float64
	APILatency time.Duration
	ObservedAt time.Time
	Stale      bool
}

// TradeOutcome is one closed trade's realized result. Records are immutable
// once appended; the engine only reads them in aggregate.
type TradeOutcome struct {
	StrategyID     string
	RealizedReturn float64 // signed fraction of risked capital
	Timestamp      time.Time
}

// EquitySample is one reported account balance at a point in time.
type EquitySample struct {
	Timestamp time.Time `json:"timestamp"`
	Balance   float64   `json:"balance"`
}
