package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

type HealthChecker struct {
	mu             sync.RWMutex
	lastEvaluation time.Time
	lastDecision   string
	tradingAllowed bool
	errors         []string
}

type HealthStatus struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	LastEvaluation time.Time `json:"last_evaluation"`
	LastDecision   string    `json:"last_decision"`
	TradingAllowed bool      `json:"trading_allowed"`
	Uptime         string    `json:"uptime"`
	Errors         []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		tradingAllowed: true,
		errors:         make([]string, 0),
	}
}

// RecordEvaluation notes the latest verdict for liveness reporting
func (h *HealthChecker) RecordEvaluation(decision string, allowed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastEvaluation = time.Now()
	h.lastDecision = decision
	h.tradingAllowed = allowed
}

// RecordError appends an error to the health report
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 20 {
		h.errors = h.errors[len(h.errors)-20:]
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.tradingAllowed {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:         status,
		Timestamp:      time.Now(),
		LastEvaluation: h.lastEvaluation,
		LastDecision:   h.lastDecision,
		TradingAllowed: h.tradingAllowed,
		Uptime:         time.Since(startTime).String(),
		Errors:         h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
