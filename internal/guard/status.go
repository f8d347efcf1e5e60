package guard

import (
	"fmt"
	"time"
)

// StatusKind tags the trading status variant.
type StatusKind string

const (
	StatusActive                    StatusKind = "active"
	StatusPausedByDrawdown          StatusKind = "paused_by_drawdown"
	StatusPausedByConsecutiveLosses StatusKind = "paused_by_consecutive_losses"
	StatusManuallyPaused            StatusKind = "manually_paused"
)

// TradingStatus is the guard's current state: exactly one variant holds at a
// time, with the timestamp and numeric payload of that variant.
type TradingStatus struct {
	Kind        StatusKind
	Since       time.Time
	DrawdownPct float64 // set when Kind is StatusPausedByDrawdown
	LossCount   int     // set when Kind is StatusPausedByConsecutiveLosses
}

// String renders the status for denial reasons and logs.
func (s TradingStatus) String() string {
	switch s.Kind {
	case StatusActive:
		return "active"
	case StatusPausedByDrawdown:
		return fmt.Sprintf("paused by drawdown (%.1f%% since %s)",
			s.DrawdownPct*100, s.Since.Format(time.RFC3339))
	case StatusPausedByConsecutiveLosses:
		return fmt.Sprintf("paused by %d consecutive losses since %s",
			s.LossCount, s.Since.Format(time.RFC3339))
	case StatusManuallyPaused:
		return fmt.Sprintf("manually paused since %s", s.Since.Format(time.RFC3339))
	default:
		return string(s.Kind)
	}
}
