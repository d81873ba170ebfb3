package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Terminal is the interactive prompt loop around a Client. It keeps the
// username of the most recent LIST as an explicit session field and
// auto-lists a mailbox before READ/DEL when the target changed, so the
// user always picks indices from an ordering they have just seen.
type Terminal struct {
	client *Client
	in     *bufio.Scanner
	out    io.Writer

	lastUser string
}

// NewTerminal creates a Terminal reading user input from in and writing
// prompts and results to out.
func NewTerminal(c *Client, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		client: c,
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

// Run executes the prompt loop until QUIT or end of input.
func (t *Terminal) Run() error {
	fmt.Fprintln(t.out, "Connected. Commands: SEND, LIST, READ, DEL, QUIT")

	for {
		verb, ok := t.prompt("> ")
		if !ok {
			return t.client.Quit()
		}
		verb = strings.ToUpper(strings.TrimSpace(verb))

		var err error
		switch verb {
		case "SEND":
			err = t.doSend()
		case "LIST":
			err = t.doList()
		case "READ":
			err = t.doRead()
		case "DEL":
			err = t.doDelete()
		case "QUIT":
			if err := t.client.Quit(); err != nil {
				return err
			}
			fmt.Fprintln(t.out, "Disconnected.")
			return nil
		case "":
			continue
		default:
			fmt.Fprintln(t.out, "Unknown command")
			continue
		}

		switch {
		case err == nil:
			// fall through to the next prompt
		case errors.Is(err, ErrRejected):
			fmt.Fprintln(t.out, "ERR")
		case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrSubjectTooLong):
			fmt.Fprintln(t.out, err.Error())
		default:
			// Transport fault: the session is gone.
			return err
		}
	}
}

// prompt prints a prompt and reads one input line. ok is false at end
// of input.
func (t *Terminal) prompt(p string) (string, bool) {
	fmt.Fprint(t.out, p)
	if !t.in.Scan() {
		return "", false
	}
	return t.in.Text(), true
}

func (t *Terminal) doSend() error {
	sender, _ := t.prompt("Sender: ")
	receiver, _ := t.prompt("Receiver: ")
	subject, _ := t.prompt("Subject: ")

	fmt.Fprintln(t.out, "Message (end with '.'):")
	var body []string
	for {
		line, ok := t.prompt("")
		if !ok || line == bodyTerminator {
			break
		}
		body = append(body, line)
	}

	if err := t.client.Send(sender, receiver, subject, body); err != nil {
		return err
	}
	fmt.Fprintln(t.out, "OK")
	return nil
}

func (t *Terminal) doList() error {
	user, _ := t.prompt("Username: ")
	return t.listMailbox(strings.TrimSpace(user))
}

// listMailbox lists a mailbox and records it as the last-listed user.
func (t *Terminal) listMailbox(user string) error {
	subjects, err := t.client.List(user)
	if err != nil {
		return err
	}
	t.lastUser = user

	fmt.Fprintf(t.out, "Messages: %d\n", len(subjects))
	for i, subject := range subjects {
		fmt.Fprintf(t.out, "%d) %s\n", i+1, subject)
	}
	return nil
}

// targetUser prompts for a username, defaulting to the last-listed one,
// and auto-lists the mailbox when the target changed since the last LIST.
func (t *Terminal) targetUser() (string, error) {
	label := "Username: "
	if t.lastUser != "" {
		label = fmt.Sprintf("Username [%s]: ", t.lastUser)
	}
	user, _ := t.prompt(label)
	user = strings.TrimSpace(user)
	if user == "" {
		user = t.lastUser
	}
	if user == "" {
		return "", ErrInvalidUsername
	}

	if user != t.lastUser {
		if err := t.listMailbox(user); err != nil {
			return "", err
		}
	}
	return user, nil
}

func (t *Terminal) doRead() error {
	user, err := t.targetUser()
	if err != nil {
		return err
	}

	numText, _ := t.prompt("Message#: ")
	index, err := strconv.Atoi(strings.TrimSpace(numText))
	if err != nil {
		fmt.Fprintln(t.out, "Invalid message number")
		return nil
	}

	lines, err := t.client.Read(user, index)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(t.out, line)
	}
	fmt.Fprintln(t.out, bodyTerminator)
	return nil
}

func (t *Terminal) doDelete() error {
	user, err := t.targetUser()
	if err != nil {
		return err
	}

	numText, _ := t.prompt("Message#: ")
	index, err := strconv.Atoi(strings.TrimSpace(numText))
	if err != nil {
		fmt.Fprintln(t.out, "Invalid message number")
		return nil
	}

	if err := t.client.Delete(user, index); err != nil {
		return err
	}
	fmt.Fprintln(t.out, "OK")
	return nil
}
