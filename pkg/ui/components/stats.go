package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds statistics for display.
type Stats struct {
	Quotes       int64
	Failures     int64
	RFQFilled    int64
	DCAQuotes    int64
	Rejections   int64
	TotalLatency time.Duration
}

// AvgLatency is the mean quote latency.
func (s Stats) AvgLatency() time.Duration {
	if s.Quotes == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Quotes)
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	rfqRate := float64(0)
	if ok := s.stats.Quotes - s.stats.Failures; ok > 0 {
		rfqRate = float64(s.stats.RFQFilled) / float64(ok) * 100
	}

	failures := valueStyle.Render(fmt.Sprintf("%d", s.stats.Failures))
	if s.stats.Failures > 0 {
		failures = errorStyle.Render(fmt.Sprintf("%d", s.stats.Failures))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Quotes: %s  │  Failed: %s  │  RFQ filled: %s (%.1f%%)  │  DCA: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Quotes)),
			failures,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.RFQFilled)),
			rfqRate,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.DCAQuotes)),
		) +
		fmt.Sprintf("Avg latency: %s  │  Admission rejections: %s",
			valueStyle.Render(fmt.Sprintf("%dms", s.stats.AvgLatency().Milliseconds())),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Rejections)),
		)
}
