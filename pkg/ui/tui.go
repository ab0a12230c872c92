package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/swap-quoter/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// StartupComponents are reported through StartupMsg in start order. The
// dashboard opens once the last one is up.
var StartupComponents = []string{"state chain", "admission", "market makers", "quote api"}

// ConnectionInfo holds connection state and latency.
type ConnectionInfo struct {
	Connected bool
	Latency   time.Duration
	LastSeen  time.Time
}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	quotes   *components.QuotesComponent
	sessions *components.SessionsComponent
	stats    *components.StatsComponent
	keys     KeyMap
	help     help.Model

	phase        Phase
	welcomeStart time.Time
	startupTime  time.Time
	started      map[string]string // component -> detail

	quitting    bool
	paused      bool
	width       int
	height      int
	counters    components.Stats
	connections map[string]*ConnectionInfo
	rejections  []string
	errors      []ErrorEntry
	logs        []string
	lastUpdate  time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		quotes:       components.NewQuotesComponent(50),
		sessions:     components.NewSessionsComponent(),
		stats:        components.NewStatsComponent(),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		startupTime:  now,
		started:      make(map[string]string),
		connections:  make(map[string]*ConnectionInfo),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.quotes.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.quotes.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.quotes.ScrollDown()
		case key.Matches(msg, m.keys.Errors):
			m.errors = nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case QuoteMsg:
		m.counters.Quotes++
		m.counters.TotalLatency += msg.Duration
		switch {
		case msg.Error != "":
			m.counters.Failures++
		default:
			if msg.UsedRFQ {
				m.counters.RFQFilled++
			}
			if msg.DCA {
				m.counters.DCAQuotes++
			}
		}
		m.stats.Update(m.counters)
		if !m.paused {
			m.quotes.Add(components.QuoteRow{
				At:           msg.At,
				Pair:         msg.Src + "→" + msg.Dst,
				Amount:       msg.Amount,
				Output:       msg.Output,
				Latency:      msg.Duration,
				UsedRFQ:      msg.UsedRFQ,
				DCA:          msg.DCA,
				LowLiquidity: msg.LowLiquidity,
				Error:        msg.Error,
			})
		}
		m.lastUpdate = time.Now()

	case SessionMsg:
		if msg.Connected {
			m.sessions.Connect(components.Session{AccountID: msg.AccountID, Beta: msg.Beta, Since: time.Now()})
			m.logs = addLine(m.logs, 5, "info: market maker connected "+msg.AccountID)
		} else {
			m.sessions.Disconnect(msg.AccountID)
			m.logs = addLine(m.logs, 5, "info: market maker disconnected "+msg.AccountID)
		}
		m.lastUpdate = time.Now()

	case RejectionMsg:
		m.counters.Rejections++
		m.stats.Update(m.counters)
		m.rejections = addLine(m.rejections, 6, fmt.Sprintf("%s %s (retry in %ds)", msg.IP, msg.Reason, msg.RetryAfter))
		m.lastUpdate = time.Now()

	case ConnectionStatusMsg:
		m.connections[msg.Name] = &ConnectionInfo{
			Connected: msg.Connected,
			Latency:   msg.Latency,
			LastSeen:  time.Now(),
		}
		m.lastUpdate = time.Now()

	case StartupMsg:
		m.started[msg.Component] = msg.Detail
		if _, ok := m.started[StartupComponents[len(StartupComponents)-1]]; ok {
			m.phase = PhaseDashboard
		}

	case ErrorMsg:
		m.logs = addLine(m.logs, 5, "error: "+msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLine(m.logs, 5, msg.Level+": "+msg.Message)
	}

	return m, nil
}

// leaveWelcome moves to the startup screen and releases module startup.
// The callback runs on its own goroutine: Send must not be called from
// inside Update.
func (m *Model) leaveWelcome() {
	if m.phase != PhaseWelcome {
		return
	}
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// addLine appends a timestamped line, keeping the last limit lines.
func addLine(lines []string, limit int, line string) []string {
	lines = append(lines, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), line))
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}
	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder
	b.WriteString(bannerStyle.Render(" Swap Quoter "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	right := m.sessions.View() + "\n\n" + m.renderRejections()
	if m.width > 100 {
		left := panelStyle.Width(m.width*3/5 - 2).Render(m.quotes.View())
		r := panelStyle.Width(m.width*2/5 - 2).Render(right)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, r))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(panelStyle.Width(width).Render(m.quotes.View()))
		b.WriteString("\n")
		b.WriteString(panelStyle.Width(width).Render(right))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(downStyle.Render("ERRORS"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(rejectText.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(dimText.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(pendingStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(helpText.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderRejections() string {
	var sb strings.Builder
	sb.WriteString(sectionStyle.Render("ADMISSION"))
	sb.WriteString("\n\n")
	if len(m.rejections) == 0 {
		sb.WriteString(dimText.Render("  No rejected callers"))
		return sb.String()
	}
	for _, line := range m.rejections {
		sb.WriteString(rejectText.Render("  " + line))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	sb.WriteString(logoStyle.Render(`
   ███████╗██╗    ██╗ █████╗ ██████╗      ██████╗ ██╗   ██╗ ██████╗ ████████╗███████╗
   ██╔════╝██║    ██║██╔══██╗██╔══██╗    ██╔═══██╗██║   ██║██╔═══██╗╚══██╔══╝██╔════╝
   ███████╗██║ █╗ ██║███████║██████╔╝    ██║   ██║██║   ██║██║   ██║   ██║   █████╗
   ╚════██║██║███╗██║██╔══██║██╔═══╝     ██║▄▄ ██║██║   ██║██║   ██║   ██║   ██╔══╝
   ███████║╚███╔███╔╝██║  ██║██║         ╚██████╔╝╚██████╔╝╚██████╔╝   ██║   ███████╗
   ╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝          ╚══▀▀═╝  ╚═════╝  ╚═════╝    ╚═╝   ╚══════╝
`))
	sb.WriteString("\n\n")
	sb.WriteString(okText.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(dimText.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartupScreen() string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(sectionStyle.Render("  Swap Quoter"))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.NewStyle().Bold(true).Render("  Starting up..."))
	sb.WriteString("\n\n")

	spinners := []string{"◐", "◓", "◑", "◒"}
	for i, name := range StartupComponents {
		detail, ok := m.started[name]
		switch {
		case ok:
			sb.WriteString(fmt.Sprintf("  %s %s %s\n", okText.Render("✓"), dimText.Render(name), okText.Render(detail)))
		case i == len(m.started):
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			sb.WriteString(fmt.Sprintf("  %s %s\n", pendingStyle.Render(spinners[idx]), dimText.Render(name)))
		default:
			sb.WriteString(fmt.Sprintf("  ○ %s\n", dimText.Render(name)))
		}
	}

	sb.WriteString("\n")
	sb.WriteString(dimText.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n")
	for _, line := range m.logs {
		sb.WriteString(dimText.Render("  " + line))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{
		fmt.Sprintf("Quotes: %d", m.counters.Quotes),
		fmt.Sprintf("Market makers: %d", m.sessions.Count()),
	}
	for name, info := range m.connections {
		if info.Connected {
			status := name
			if info.Latency > 0 {
				status = fmt.Sprintf("%s (%dms)", name, info.Latency.Milliseconds())
			}
			parts = append(parts, liveStyle.Render("● "+status))
		} else {
			parts = append(parts, downStyle.Render("○ "+name+" (disconnected)"))
		}
	}
	if !m.lastUpdate.IsZero() {
		parts = append(parts, dimText.Render(fmt.Sprintf("Updated: %s ago", time.Since(m.lastUpdate).Round(time.Second))))
	}
	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. Set by the serve command.
var OnStartModules func()

// Send sends a message to the running program. It is a no-op without one.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
