// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// QuoteRow is one served quote request.
type QuoteRow struct {
	At           time.Time
	Pair         string
	Amount       string
	Output       string
	Latency      time.Duration
	UsedRFQ      bool
	DCA          bool
	LowLiquidity bool
	Error        string
}

// QuotesComponent renders the most recent quotes, newest first.
type QuotesComponent struct {
	rows    []QuoteRow
	maxRows int
	offset  int
	visible int
}

// NewQuotesComponent creates a feed keeping maxRows quotes.
func NewQuotesComponent(maxRows int) *QuotesComponent {
	return &QuotesComponent{maxRows: maxRows, visible: 12}
}

// Add prepends row.
func (q *QuotesComponent) Add(row QuoteRow) {
	q.rows = append([]QuoteRow{row}, q.rows...)
	if len(q.rows) > q.maxRows {
		q.rows = q.rows[:q.maxRows]
	}
}

// Len returns the number of kept quotes.
func (q *QuotesComponent) Len() int { return len(q.rows) }

// Clear drops every quote.
func (q *QuotesComponent) Clear() {
	q.rows = nil
	q.offset = 0
}

func (q *QuotesComponent) ScrollUp() {
	if q.offset > 0 {
		q.offset--
	}
}

func (q *QuotesComponent) ScrollDown() {
	if q.offset < len(q.rows)-q.visible {
		q.offset++
	}
}

// View renders the feed.
func (q *QuotesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("QUOTES (last %d)", q.maxRows)))
	sb.WriteString("\n\n")
	if len(q.rows) == 0 {
		sb.WriteString(mutedStyle.Render("  Waiting for quote requests..."))
		return sb.String()
	}

	end := min(q.offset+q.visible, len(q.rows))
	for _, row := range q.rows[q.offset:end] {
		line := fmt.Sprintf("%s %-10s %22s", row.At.Format("15:04:05"), row.Pair, row.Amount)
		if row.Error != "" {
			sb.WriteString(failStyle.Render("✗ " + line + "  " + row.Error))
			sb.WriteString("\n")
			continue
		}

		var tags []string
		if row.UsedRFQ {
			tags = append(tags, "rfq")
		}
		if row.DCA {
			tags = append(tags, "dca")
		}
		out := fmt.Sprintf("✓ %s → %s (%dms)", line, row.Output, row.Latency.Milliseconds())
		if row.LowLiquidity {
			sb.WriteString(warnStyle.Render(out + " low liquidity"))
		} else {
			sb.WriteString(okStyle.Render(out))
		}
		if len(tags) > 0 {
			sb.WriteString(mutedStyle.Render(" [" + strings.Join(tags, ",") + "]"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
