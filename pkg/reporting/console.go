package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/trade-risk-gate/internal/gate"
)

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// PrintGateStatus renders the current gate state as a table
func (r *DefaultConsoleReporter) PrintGateStatus(account string, stats gate.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RISK GATE STATUS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🏦 Account", account},
		{"🚦 Trading Status", stats.Status.String()},
		{"📉 Drawdown", fmt.Sprintf("%.2f%%", stats.Drawdown*100)},
		{"🏔️ Equity Peak", fmt.Sprintf("$%.2f", stats.Peak)},
		{"🔢 Loss Streak", fmt.Sprintf("%d", stats.ConsecutiveLosses)},
	})

	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"⚖️ Evaluations", fmt.Sprintf("%d", stats.Evaluations)},
		{"✅ Approved", fmt.Sprintf("%d", stats.Approved)},
		{"⚠️ Conditional", fmt.Sprintf("%d", stats.Conditional)},
		{"❌ Denied", fmt.Sprintf("%d", stats.Denied)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 45, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintSummary renders the audit trail summary as a table
func (r *DefaultConsoleReporter) PrintSummary(trail *AuditTrail) {
	s := trail.Summarize()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("ADMISSION SUMMARY")
	t.SetStyle(table.StyleRounded)

	approvedPct := 0.0
	deniedPct := 0.0
	if s.Total > 0 {
		approvedPct = float64(s.Approved) / float64(s.Total) * 100
		deniedPct = float64(s.Denied) / float64(s.Total) * 100
	}

	t.AppendRows([]table.Row{
		{"⚖️ Total Verdicts", fmt.Sprintf("%d", s.Total)},
		{"✅ Approved", fmt.Sprintf("%d (%.1f%%)", s.Approved, approvedPct)},
		{"⚠️ Conditional", fmt.Sprintf("%d", s.Conditional)},
		{"❌ Denied", fmt.Sprintf("%d (%.1f%%)", s.Denied, deniedPct)},
		{"📊 Avg Risk Score", fmt.Sprintf("%.3f", s.AvgScore)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintVerdict prints one ruling as a single console line
func (r *DefaultConsoleReporter) PrintVerdict(rec VerdictRecord) {
	icon := "✅"
	switch rec.Decision {
	case string(gate.DecisionConditional):
		icon = "⚠️"
	case string(gate.DecisionDenied):
		icon = "❌"
	}

	line := fmt.Sprintf("%s %s %s | score %.3f | size %.4f", icon, rec.StrategyID, rec.Decision, rec.RiskScore, rec.SizeFraction)
	if len(rec.Reasons) > 0 {
		line += " | " + rec.Reasons[0]
	}
	fmt.Println(line)
}
