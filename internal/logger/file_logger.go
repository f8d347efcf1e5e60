package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a file logger for risk engine activity
type Logger struct {
	accountID string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logDir    string
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelVerdict LogLevel = "VERDICT"
	LogLevelStatus  LogLevel = "STATUS"
)

// NewLogger creates a new file logger for the specified account
func NewLogger(accountID string) (*Logger, error) {
	// Create log directory if it doesn't exist
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Create log filename with timestamp
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_risk_%s.log", accountID, timestamp)
	logPath := filepath.Join(logDir, filename)

	// Open or create log file
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create logger with no prefix (we add our own formatting)
	logger := log.New(file, "", 0)

	l := &Logger{
		accountID: accountID,
		logFile:   file,
		logger:    logger,
		logDir:    logDir,
	}

	// Write session start header
	l.writeSessionHeader()

	return l, nil
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🛡️ RISK GATE SESSION STARTED
================================================================================
Account: %s
Started: %s
Log File: %s_risk_%s.log
================================================================================
`, l.accountID, time.Now().Format("2006-01-02 15:04:05"),
		l.accountID, time.Now().Format("2006-01-02"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	logEntry := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	l.logger.Println(logEntry)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Verdict logs an admission ruling
func (l *Logger) Verdict(format string, args ...interface{}) {
	l.Log(LogLevelVerdict, format, args...)
}

// Status logs trading status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogVerdict logs one complete admission ruling
func (l *Logger) LogVerdict(strategyID string, decision string, riskScore float64, sizeFraction float64, reasons []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	verdictLog := fmt.Sprintf(`
[%s] [VERDICT] ==================== %s ====================
📋 Strategy: %s
⚖️ Risk Score: %.3f
📊 Size Fraction: %.4f`,
		timestamp, decision, strategyID, riskScore, sizeFraction)

	if len(reasons) > 0 {
		for _, r := range reasons {
			verdictLog += fmt.Sprintf("\n❗ Reason: %s", r)
		}
	}

	verdictLog += "\n=========================================================="

	l.logger.Println(verdictLog)
}

// LogStatusChange logs a trading status transition
func (l *Logger) LogStatusChange(from, to string, drawdown float64, losses int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	statusLog := fmt.Sprintf(`
[%s] [STATUS] ==================== STATUS CHANGE ====================
🔄 Transition: %s -> %s
📉 Drawdown: %.2f%%
🔢 Consecutive Losses: %d
==============================================================`,
		timestamp, from, to, drawdown*100, losses)

	l.logger.Println(statusLog)
}

// LogBalanceUpdate logs a reported account balance
func (l *Logger) LogBalanceUpdate(balance, peak, drawdown float64) {
	l.Info("Balance recorded: $%.2f (peak $%.2f, drawdown %.2f%%)", balance, peak, drawdown*100)
}

// LogTradeOutcome logs a realized trade result
func (l *Logger) LogTradeOutcome(strategyID string, realizedReturn float64, losses int) {
	l.Info("Outcome recorded for %s: %.4f (loss streak %d)", strategyID, realizedReturn, losses)
}

// LogAnomaly logs one anomaly observation
func (l *Logger) LogAnomaly(kind, severity, reason string) {
	l.Warning("Anomaly [%s/%s]: %s", kind, severity, reason)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogPersistenceFailure logs a failed state save; these must never pass silently
func (l *Logger) LogPersistenceFailure(err error) {
	l.Error("STATE NOT DURABLE: %v", err)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		// Write session end header
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
🛑 RISK GATE SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_risk_%s.log", l.accountID, timestamp)
	return filepath.Join(l.logDir, filename)
}
