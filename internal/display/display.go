// Package display renders scan and trade results to the terminal.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/torisan/KabutoGo/internal/models"
	"github.com/torisan/KabutoGo/internal/paper"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerRowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	buyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	sellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	holdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)
)

// Picks prints the ranked scan results as a table.
func Picks(payload *models.PicksPayload) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Nikkei 225 scan — %s", payload.Asof)))
	if len(payload.Picks) == 0 {
		fmt.Println(dimStyle.Render("No candidates passed the screen."))
		return
	}

	var b strings.Builder
	b.WriteString(headerRowStyle.Render(fmt.Sprintf("%-3s %-6s %-16s %7s %9s %9s %9s %9s",
		"#", "Code", "Name", "Score", "Close", "Entry", "Stop", "TP")))
	b.WriteString("\n")
	for i, p := range payload.Picks {
		b.WriteString(fmt.Sprintf("%-3d %-6s %-16s %7.3f %9.1f %9.1f %9.1f %9.1f\n",
			i+1, p.Code, truncate(p.Name, 16), p.Score, p.Close, p.Entry, p.Stop, p.TakeProfit))
		if len(p.PriceActionTags) > 0 {
			b.WriteString(dimStyle.Render("    " + strings.Join(p.PriceActionTags, ", ")))
			b.WriteString("\n")
		}
		if p.AISummary != "" {
			b.WriteString(dimStyle.Render(fmt.Sprintf("    AI %.2f: %s", p.AIScore, truncate(p.AISummary, 90))))
			b.WriteString("\n")
		}
	}
	fmt.Println(panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// TradeResult prints the outcome of one rebalance round.
func TradeResult(res *paper.Result) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Paper rebalance — %s", res.Date)))
	if res.Skipped {
		fmt.Println(dimStyle.Render("Already rebalanced for this date, nothing done."))
		return
	}

	var b strings.Builder
	for _, t := range res.Trades {
		var style lipgloss.Style
		switch t.Side {
		case models.SideBuy:
			style = buyStyle
		case models.SideSell:
			style = sellStyle
		default:
			style = holdStyle
		}
		b.WriteString(fmt.Sprintf("%s %-6s %6d @ %10.2f  %12.2f  %s\n",
			style.Render(fmt.Sprintf("%-4s", t.Side)), t.Code, t.Qty, t.Price, t.Notional, dimStyle.Render(t.Reason)))
	}
	if len(res.Unpriced) > 0 {
		b.WriteString(dimStyle.Render("unpriced, skipped: " + strings.Join(res.Unpriced, ", ")))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\nCash %.2f | Holdings %.2f | Total %.2f | Positions %d",
		res.Cash, res.HoldingsValue, res.Total, len(res.Positions)))
	fmt.Println(panelStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// Error prints an error message.
func Error(err error) {
	fmt.Println(sellStyle.Render("Error: " + err.Error()))
}

// Info prints an informational message.
func Info(message string) {
	fmt.Println(dimStyle.Render(message))
}

// Success prints a success message.
func Success(message string) {
	fmt.Println(buyStyle.Render(message))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
