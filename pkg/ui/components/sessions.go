package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Session is a connected market maker.
type Session struct {
	AccountID string
	Beta      bool
	Since     time.Time
}

// SessionsComponent renders the live market maker sessions.
type SessionsComponent struct {
	sessions map[string]Session
}

func NewSessionsComponent() *SessionsComponent {
	return &SessionsComponent{sessions: make(map[string]Session)}
}

// Connect records or replaces a session.
func (s *SessionsComponent) Connect(sess Session) {
	s.sessions[sess.AccountID] = sess
}

// Disconnect forgets account.
func (s *SessionsComponent) Disconnect(account string) {
	delete(s.sessions, account)
}

// Count returns the number of live sessions.
func (s *SessionsComponent) Count() int { return len(s.sessions) }

// View renders the session list sorted by account.
func (s *SessionsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	liveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	betaStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("MARKET MAKERS (%d)", len(s.sessions))))
	sb.WriteString("\n\n")
	if len(s.sessions) == 0 {
		sb.WriteString(mutedStyle.Render("  No market makers connected"))
		return sb.String()
	}

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sess := s.sessions[id]
		sb.WriteString(liveStyle.Render("● " + shorten(id)))
		if sess.Beta {
			sb.WriteString(betaStyle.Render(" beta"))
		}
		sb.WriteString(mutedStyle.Render(fmt.Sprintf(" %s", time.Since(sess.Since).Round(time.Second))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func shorten(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "…" + id[len(id)-6:]
}
