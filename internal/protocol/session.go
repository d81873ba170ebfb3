package protocol

import (
	"github.com/twmailer/twmaild/internal/metrics"
	"github.com/twmailer/twmaild/internal/spool"
)

// State represents the current state in the session state machine.
type State int

const (
	// StateAwaitingCommand is the initial state: the next frame is a verb.
	StateAwaitingCommand State = iota

	// StateInCommand means a command's argument/body exchange is mid-flight.
	StateInCommand

	// StateClosed is terminal: QUIT, disconnect, or an unreadable
	// command line.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingCommand:
		return "AWAITING_COMMAND"
	case StateInCommand:
		return "IN_COMMAND"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session tracks one connection's command loop. The protocol is
// stateless across commands (every command re-specifies its target
// user), so the only state carried is which command, if any, is
// mid-exchange.
type Session struct {
	state   State
	current string // verb of the command mid-exchange, if any

	store     *spool.Store
	collector metrics.Collector
}

// NewSession creates a session bound to the given store and collector.
func NewSession(store *spool.Store, collector metrics.Collector) *Session {
	if collector == nil {
		collector = &metrics.NoopCollector{}
	}
	return &Session{
		state:     StateAwaitingCommand,
		store:     store,
		collector: collector,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Store returns the mailbox store for this session.
func (s *Session) Store() *spool.Store {
	return s.store
}

// Collector returns the metrics collector for this session.
func (s *Session) Collector() metrics.Collector {
	return s.collector
}

// BeginCommand marks a command's argument exchange as in progress.
func (s *Session) BeginCommand(verb string) {
	if s.state == StateAwaitingCommand {
		s.state = StateInCommand
		s.current = verb
	}
}

// EndCommand returns to awaiting the next verb.
func (s *Session) EndCommand() {
	if s.state == StateInCommand {
		s.state = StateAwaitingCommand
		s.current = ""
	}
}

// CurrentCommand returns the verb mid-exchange, or "".
func (s *Session) CurrentCommand() string {
	return s.current
}

// Close marks the session terminal.
func (s *Session) Close() {
	s.state = StateClosed
	s.current = ""
}
