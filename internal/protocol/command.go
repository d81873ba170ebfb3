// Package protocol implements the line-oriented command protocol: a
// per-connection session state machine that reads command verbs and
// their follow-up lines, drives the mailbox store, and emits OK/ERR
// responses.
package protocol

import (
	"context"

	"github.com/twmailer/twmaild/internal/server"
)

// Protocol tokens. Verbs and response tokens are case-sensitive; a
// conforming client upper-cases user-typed verbs before sending.
const (
	StatusOK  = "OK"
	StatusErr = "ERR"

	// BodyTerminator ends a SEND body and a READ payload. The comparison
	// is whole-line, so a body line equal to "." is indistinguishable
	// from the terminator. Known protocol limitation.
	BodyTerminator = "."
)

// Command represents one protocol command. Execute gathers the
// command's follow-up request lines from the connection, performs the
// operation, and returns the response to emit. A non-nil error is a
// transport fault and terminates the session; user and storage errors
// are expressed as an ERR response instead.
type Command interface {
	// Name returns the command verb, e.g. "SEND".
	Name() string

	// Execute processes the command after its verb line has been read.
	Execute(ctx context.Context, sess *Session, conn *server.Connection) (Response, error)
}

// Response represents the server's reply to one command.
type Response struct {
	// Status is "OK", "ERR", or empty for commands with no status line
	// (LIST replies with a count instead, QUIT with nothing).
	Status string

	// Lines are additional response lines sent verbatim after Status.
	Lines []string

	// Dot appends the terminator line after Lines (READ payloads).
	Dot bool
}

// LineWriter is the sink a Response is written to. *server.Connection
// implements it.
type LineWriter interface {
	WriteLine(text string) error
}

// Send writes the response one frame at a time. Any write error is a
// transport fault.
func (r Response) Send(w LineWriter) error {
	if r.Status != "" {
		if err := w.WriteLine(r.Status); err != nil {
			return err
		}
	}
	for _, line := range r.Lines {
		if err := w.WriteLine(line); err != nil {
			return err
		}
	}
	if r.Dot {
		return w.WriteLine(BodyTerminator)
	}
	return nil
}

// commandRegistry holds all registered commands, keyed by exact verb.
var commandRegistry = make(map[string]Command)

// RegisterCommand registers a command in the registry.
func RegisterCommand(cmd Command) {
	commandRegistry[cmd.Name()] = cmd
}

// GetCommand retrieves a command from the registry by verb.
// Lookup is case-sensitive: "send" is not a command.
func GetCommand(verb string) (Command, bool) {
	cmd, ok := commandRegistry[verb]
	return cmd, ok
}
