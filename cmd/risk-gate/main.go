package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/trade-risk-gate/internal/anomaly"
	"github.com/ducminhle1904/trade-risk-gate/internal/config"
	"github.com/ducminhle1904/trade-risk-gate/internal/gate"
	"github.com/ducminhle1904/trade-risk-gate/internal/guard"
	"github.com/ducminhle1904/trade-risk-gate/internal/logger"
	"github.com/ducminhle1904/trade-risk-gate/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-gate/internal/sizing"
	"github.com/ducminhle1904/trade-risk-gate/internal/state"
	"github.com/ducminhle1904/trade-risk-gate/pkg/reporting"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// App wires the risk gate and its supporting services together
type App struct {
	cfg     *config.Config
	gate    *gate.RiskGate
	guard   *guard.DrawdownGuard
	log     *logger.Logger
	health  *monitoring.HealthChecker
	trail   *reporting.AuditTrail
	console *reporting.DefaultConsoleReporter
}

func main() {
	var (
		envFile  = flag.String("env", ".env", "Environment file path")
		cycles   = flag.Int("cycles", 200, "Number of simulated decision cycles (0 = run until interrupted)")
		interval = flag.Duration("interval", time.Second, "Delay between decision cycles")
		output   = flag.String("output", "results/risk_audit.xlsx", "Audit workbook output path")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No environment file loaded (%s): %v", *envFile, err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer app.log.Close()

	app.startServers()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutdown signal received")
		cancel()
	}()

	app.run(ctx, *cycles, *interval)

	if err := reporting.NewDefaultExcelReporter().WriteAuditXLSX(app.trail, *output); err != nil {
		log.Printf("Failed to write audit workbook: %v", err)
	} else {
		log.Printf("Audit workbook written to %s", *output)
	}
	app.console.PrintSummary(app.trail)
	app.console.PrintGateStatus(cfg.AccountID, app.gate.Stats())
}

func newApp(cfg *config.Config) (*App, error) {
	fileLog, err := logger.NewLogger(cfg.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := state.NewFileStore(cfg.StateDir, cfg.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store: %w", err)
	}

	g := guard.NewDrawdownGuard(cfg.Guard, store)
	if err := g.LoadState(); err != nil {
		// The guard starts Active when the record is unreadable; keep
		// going but make the problem loud.
		fileLog.LogError("state load", err)
		monitoring.RecordError("state_load")
	}
	g.SetPersistenceErrorCallback(func(err error) {
		fileLog.LogPersistenceFailure(err)
		monitoring.RecordPersistenceFailure()
	})

	rg := gate.NewRiskGate(*cfg, g, anomaly.NewMonitor(cfg.Anomaly), sizing.NewSizer(cfg.Sizing))

	return &App{
		cfg:     cfg,
		gate:    rg,
		guard:   g,
		log:     fileLog,
		health:  monitoring.NewHealthChecker(),
		trail:   reporting.NewAuditTrail(10000),
		console: reporting.NewDefaultConsoleReporter(),
	}, nil
}

func (a *App) startServers() {
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.Monitoring.PrometheusPort)
		log.Printf("Metrics server listening on %s/metrics", addr)
		if err := http.ListenAndServe(addr, monitoring.NewMetricsHandler()); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.Monitoring.HealthPort)
		log.Printf("Health server listening on %s/health", addr)
		mux := http.NewServeMux()
		mux.Handle("/health", a.health)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Health server stopped: %v", err)
		}
	}()
}

// run drives simulated decision cycles: synthetic market data and model
// output flow through the real gate, outcomes and balances flow back.
func (a *App) run(ctx context.Context, cycles int, interval time.Duration) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sim := newSimulator(rng, 10000)

	a.console.PrintGateStatus(a.cfg.AccountID, a.gate.Stats())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; cycles == 0 || i < cycles; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap := sim.nextSnapshot()
		for _, o := range a.gate.ObserveMarket(snap) {
			a.log.LogAnomaly(string(o.Kind), string(o.Severity), o.Reason)
			monitoring.RecordAnomaly(string(o.Kind), string(o.Severity))
		}

		trade := sim.nextCandidate()
		confidence := sim.nextConfidence()

		verdict, err := a.gate.Evaluate(trade, confidence, snap, sim.history)
		if err != nil {
			a.log.LogError("evaluate", err)
			monitoring.RecordError("evaluate")
			a.health.RecordError(err.Error())
		}

		a.trail.AddVerdict(trade, verdict)
		a.log.LogVerdict(trade.StrategyID, string(verdict.Decision), verdict.RiskScore, verdict.PositionSizeFraction, verdict.Reasons)
		monitoring.RecordVerdict(a.cfg.AccountID, string(verdict.Decision), verdict.RiskScore, verdict.PositionSizeFraction)
		a.health.RecordEvaluation(string(verdict.Decision), a.guard.IsTradingAllowed())

		if verdict.Admitted() {
			a.settle(sim, trade, verdict)
		}

		monitoring.UpdateGuard(a.cfg.AccountID, a.guard.IsTradingAllowed(), a.guard.Drawdown(), a.guard.ConsecutiveLosses())
	}
}

// settle simulates the execution-result path feeding back into the guard.
func (a *App) settle(sim *simulator, trade types.CandidateTrade, verdict *gate.Verdict) {
	before := a.guard.Status().Kind

	outcome := sim.fill(trade, verdict.PositionSizeFraction)
	if err := a.gate.RecordTradeOutcome(outcome); err != nil {
		a.log.LogError("record outcome", err)
		monitoring.RecordError("record_outcome")
	}
	a.log.LogTradeOutcome(outcome.StrategyID, outcome.RealizedReturn, a.guard.ConsecutiveLosses())

	if err := a.gate.RecordBalance(sim.balance); err != nil {
		a.log.LogError("record balance", err)
		monitoring.RecordError("record_balance")
	}
	a.log.LogBalanceUpdate(sim.balance, a.guard.Peak(), a.guard.Drawdown())
	a.trail.AddEquity(types.EquitySample{Timestamp: time.Now(), Balance: sim.balance})

	if after := a.guard.Status().Kind; after != before {
		a.log.LogStatusChange(string(before), string(after), a.guard.Drawdown(), a.guard.ConsecutiveLosses())
		a.console.PrintGateStatus(a.cfg.AccountID, a.gate.Stats())
	}
}
