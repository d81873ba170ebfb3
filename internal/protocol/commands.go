package protocol

import (
	"context"
	"strconv"

	"github.com/twmailer/twmaild/internal/server"
)

// sendCommand implements SEND: sender, receiver, and subject lines,
// then body lines until the terminator.
type sendCommand struct{}

func (c *sendCommand) Name() string {
	return "SEND"
}

func (c *sendCommand) Execute(ctx context.Context, sess *Session, conn *server.Connection) (Response, error) {
	sender, err := conn.ReadLine()
	if err != nil {
		return Response{}, err
	}
	receiver, err := conn.ReadLine()
	if err != nil {
		return Response{}, err
	}
	subject, err := conn.ReadLine()
	if err != nil {
		return Response{}, err
	}

	// The body is consumed in full before any validation, so a rejected
	// SEND leaves the session aligned on the next verb frame.
	var body []string
	var size int64
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return Response{}, err
		}
		if line == BodyTerminator {
			break
		}
		body = append(body, line)
		size += int64(len(line)) + 1
	}

	if sender == "" || receiver == "" || subject == "" {
		return Response{Status: StatusErr}, nil
	}

	if err := sess.Store().Deliver(ctx, receiver, subject, body); err != nil {
		conn.Logger().Error("delivery failed",
			"receiver", receiver,
			"error", err.Error(),
		)
		return Response{Status: StatusErr}, nil
	}

	sess.Collector().MessageDelivered(size + int64(len(subject)) + 1)
	return Response{Status: StatusOK}, nil
}

// listCommand implements LIST: a username line, answered with a count
// line followed by exactly count subject lines. There is no failure
// path; an unknown or empty mailbox yields count 0.
type listCommand struct{}

func (c *listCommand) Name() string {
	return "LIST"
}

func (c *listCommand) Execute(ctx context.Context, sess *Session, conn *server.Connection) (Response, error) {
	user, err := conn.ReadLine()
	if err != nil {
		return Response{}, err
	}

	msgs, err := sess.Store().List(ctx, user)
	if err != nil {
		conn.Logger().Error("list failed", "user", user, "error", err.Error())
		msgs = nil
	}

	lines := make([]string, 0, len(msgs)+1)
	lines = append(lines, strconv.Itoa(len(msgs)))
	for _, m := range msgs {
		lines = append(lines, m.Subject)
	}

	sess.Collector().MessageListed()
	return Response{Lines: lines}, nil
}

// readCommand implements READ: username and index lines, answered with
// OK, every stored line of the message, and the terminator, or ERR.
type readCommand struct{}

func (c *readCommand) Name() string {
	return "READ"
}

func (c *readCommand) Execute(ctx context.Context, sess *Session, conn *server.Connection) (Response, error) {
	user, err := conn.ReadLine()
	if err != nil {
		return Response{}, err
	}
	indexText, err := conn.ReadLine()
	if err != nil {
		return Response{}, err
	}

	index, err := strconv.Atoi(indexText)
	if err != nil {
		return Response{Status: StatusErr}, nil
	}

	lines, err := sess.Store().Fetch(ctx, user, index)
	if err != nil {
		return Response{Status: StatusErr}, nil
	}

	sess.Collector().MessageRetrieved()
	return Response{Status: StatusOK, Lines: lines, Dot: true}, nil
}

// delCommand implements DEL: username and index lines, answered OK/ERR.
type delCommand struct{}

func (c *delCommand) Name() string {
	return "DEL"
}

func (c *delCommand) Execute(ctx context.Context, sess *Session, conn *server.Connection) (Response, error) {
	user, err := conn.ReadLine()
	if err != nil {
		return Response{}, err
	}
	indexText, err := conn.ReadLine()
	if err != nil {
		return Response{}, err
	}

	index, err := strconv.Atoi(indexText)
	if err != nil {
		return Response{Status: StatusErr}, nil
	}

	if err := sess.Store().Delete(ctx, user, index); err != nil {
		return Response{Status: StatusErr}, nil
	}

	sess.Collector().MessageDeleted()
	return Response{Status: StatusOK}, nil
}

// quitCommand implements QUIT: no arguments, no response; the handler
// closes the session after executing it.
type quitCommand struct{}

func (c *quitCommand) Name() string {
	return "QUIT"
}

func (c *quitCommand) Execute(ctx context.Context, sess *Session, conn *server.Connection) (Response, error) {
	sess.Close()
	return Response{}, nil
}

// RegisterCommands registers every protocol command.
func RegisterCommands() {
	RegisterCommand(&sendCommand{})
	RegisterCommand(&listCommand{})
	RegisterCommand(&readCommand{})
	RegisterCommand(&delCommand{})
	RegisterCommand(&quitCommand{})
}
