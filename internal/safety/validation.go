package safety

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	Valid   bool
	Message string
	Code    string
}

// Validator provides defensive validation for every input crossing the engine
// boundary. Malformed values are rejected here, never coerced downstream.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateBalance validates a reported account balance.
func (v *Validator) ValidateBalance(balance float64) ValidationResult {
	if math.IsNaN(balance) {
		return ValidationResult{
			Valid:   false,
			Message: "balance is NaN",
			Code:    "BALANCE_NAN",
		}
	}
	if math.IsInf(balance, 0) {
		return ValidationResult{
			Valid:   false,
			Message: "balance is infinite",
			Code:    "BALANCE_INF",
		}
	}
	if balance < 0 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("balance %.8f cannot be negative", balance),
			Code:    "BALANCE_NEGATIVE",
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateConfidence validates a model confidence estimate.
func (v *Validator) ValidateConfidence(confidence float64) ValidationResult {
	if math.IsNaN(confidence) {
		return ValidationResult{
			Valid:   false,
			Message: "confidence is NaN",
			Code:    "CONFIDENCE_NAN",
		}
	}
	if confidence < 0 || confidence > 1 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("confidence %.4f outside [0, 1]", confidence),
			Code:    "CONFIDENCE_OUT_OF_RANGE",
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateRealizedReturn validates a trade outcome's realized return.
func (v *Validator) ValidateRealizedReturn(ret float64) ValidationResult {
	if math.IsNaN(ret) || math.IsInf(ret, 0) {
		return ValidationResult{
			Valid:   false,
			Message: "realized return is not finite",
			Code:    "RETURN_NOT_FINITE",
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateSnapshot validates a market snapshot before any check consumes it.
func (v *Validator) ValidateSnapshot(snap types.MarketSnapshot) ValidationResult {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"bid", snap.Bid},
		{"ask", snap.Ask},
		{"mid", snap.Mid},
		{"last price", snap.LastPrice},
		{"volume", snap.Volume},
	} {
		if math.IsNaN(f.value) {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("snapshot %s is NaN", f.name),
				Code:    "SNAPSHOT_NAN",
			}
		}
		if math.IsInf(f.value, 0) {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("snapshot %s is infinite", f.name),
				Code:    "SNAPSHOT_INF",
			}
		}
	}

	if snap.Bid <= 0 || snap.Ask <= 0 || snap.Mid <= 0 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("snapshot prices must be positive: bid=%.8f ask=%.8f mid=%.8f", snap.Bid, snap.Ask, snap.Mid),
			Code:    "SNAPSHOT_PRICE_NOT_POSITIVE",
		}
	}
	if snap.Ask < snap.Bid {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("crossed book: ask %.8f below bid %.8f", snap.Ask, snap.Bid),
			Code:    "SNAPSHOT_CROSSED_BOOK",
		}
	}
	if snap.Volume < 0 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("snapshot volume %.8f cannot be negative", snap.Volume),
			Code:    "SNAPSHOT_VOLUME_NEGATIVE",
		}
	}

	return ValidationResult{Valid: true}
}

// ValidateCandidate validates a candidate trade proposal.
func (v *Validator) ValidateCandidate(trade types.CandidateTrade) ValidationResult {
	if trade.StrategyID == "" {
		return ValidationResult{
			Valid:   false,
			Message: "candidate trade strategy ID cannot be empty",
			Code:    "CANDIDATE_STRATEGY_EMPTY",
		}
	}
	if trade.Side != types.SideBuy && trade.Side != types.SideSell {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("candidate trade side %q is not buy or sell", trade.Side),
			Code:    "CANDIDATE_SIDE_INVALID",
		}
	}
	if math.IsNaN(trade.EntryPrice) || math.IsInf(trade.EntryPrice, 0) || trade.EntryPrice <= 0 {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("candidate entry price %.8f must be positive and finite", trade.EntryPrice),
			Code:    "CANDIDATE_PRICE_INVALID",
		}
	}
	return ValidationResult{Valid: true}
}

// SafeDivision performs division with zero and non-finite checks.
func (v *Validator) SafeDivision(dividend, divisor float64) (float64, error) {
	if divisor == 0 {
		return 0, fmt.Errorf("division by zero: %.8f / %.8f", dividend, divisor)
	}
	if math.IsNaN(dividend) || math.IsNaN(divisor) {
		return 0, fmt.Errorf("division with NaN: %.8f / %.8f", dividend, divisor)
	}
	if math.IsInf(dividend, 0) || math.IsInf(divisor, 0) {
		return 0, fmt.Errorf("division with infinity: %.8f / %.8f", dividend, divisor)
	}

	result := dividend / divisor
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("division resulted in invalid value: %.8f / %.8f = %.8f",
			dividend, divisor, result)
	}
	return result, nil
}
