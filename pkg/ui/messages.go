// Package ui provides the Bubble Tea operator dashboard for the quoter.
package ui

import "time"

// Message types for TUI updates

// QuoteMsg is sent for every finished quote request.
type QuoteMsg struct {
	Src          string
	Dst          string
	Amount       string
	Output       string // empty on failure
	Duration     time.Duration
	UsedRFQ      bool
	DCA          bool
	LowLiquidity bool
	Error        string
	At           time.Time
}

// SessionMsg is sent when a market maker connects or disconnects.
type SessionMsg struct {
	AccountID string
	Connected bool
	Beta      bool
}

// RejectionMsg is sent when admission control turns a caller away.
type RejectionMsg struct {
	IP         string
	Reason     string
	RetryAfter int
}

// ConnectionStatusMsg is sent when an upstream connection changes state.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// StartupMsg reports that a component finished starting.
type StartupMsg struct {
	Component string
	Detail    string
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
