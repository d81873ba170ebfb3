// Package client implements the wire side of the mail protocol for the
// interactive terminal client.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	maxUsernameLen = 8
	maxSubjectLen  = 80

	bodyTerminator = "."
)

// Client errors.
var (
	// ErrRejected is returned when the server answers ERR.
	ErrRejected = errors.New("server rejected command")

	// ErrInvalidUsername is returned for usernames failing client-side
	// validation before anything is sent.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrSubjectTooLong is returned when a subject exceeds the limit.
	ErrSubjectTooLong = errors.New("subject too long")
)

// ValidUsername reports whether name is 1 to 8 characters, each a
// lowercase letter or decimal digit. The client enforces this before
// sending; the server enforces it again at the store boundary.
func ValidUsername(name string) bool {
	if len(name) == 0 || len(name) > maxUsernameLen {
		return false
	}
	for _, c := range name {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Client speaks the line protocol over an established connection.
type Client struct {
	rw io.ReadWriter
	r  *bufio.Reader
}

// New wraps an established connection.
func New(rw io.ReadWriter) *Client {
	return &Client{
		rw: rw,
		r:  bufio.NewReader(rw),
	}
}

func (c *Client) writeLine(text string) error {
	_, err := io.WriteString(c.rw, text+"\n")
	return err
}

func (c *Client) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// status reads a single OK/ERR line.
func (c *Client) status() error {
	line, err := c.readLine()
	if err != nil {
		return err
	}
	if line != "OK" {
		return ErrRejected
	}
	return nil
}

// Send deposits a message. Body lines are sent verbatim; a body line
// equal to the terminator would end the body early, so Send refuses it.
func (c *Client) Send(sender, receiver, subject string, body []string) error {
	if !ValidUsername(sender) || !ValidUsername(receiver) {
		return ErrInvalidUsername
	}
	if len(subject) > maxSubjectLen {
		return ErrSubjectTooLong
	}
	for _, line := range body {
		if line == bodyTerminator {
			return fmt.Errorf("body line %q would terminate the message early", bodyTerminator)
		}
	}

	for _, line := range []string{"SEND", sender, receiver, subject} {
		if err := c.writeLine(line); err != nil {
			return err
		}
	}
	for _, line := range body {
		if err := c.writeLine(line); err != nil {
			return err
		}
	}
	if err := c.writeLine(bodyTerminator); err != nil {
		return err
	}
	return c.status()
}

// List returns the subjects in user's mailbox, in mailbox order.
func (c *Client) List(user string) ([]string, error) {
	if !ValidUsername(user) {
		return nil, ErrInvalidUsername
	}

	if err := c.writeLine("LIST"); err != nil {
		return nil, err
	}
	if err := c.writeLine(user); err != nil {
		return nil, err
	}

	countText, err := c.readLine()
	if err != nil {
		return nil, err
	}
	count, err := strconv.Atoi(countText)
	if err != nil || count < 0 {
		return nil, fmt.Errorf("malformed message count %q", countText)
	}

	subjects := make([]string, 0, count)
	for i := 0; i < count; i++ {
		subject, err := c.readLine()
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// Read fetches message index (1-based) from user's mailbox and returns
// its lines, subject first, without the terminator.
func (c *Client) Read(user string, index int) ([]string, error) {
	if !ValidUsername(user) {
		return nil, ErrInvalidUsername
	}

	for _, line := range []string{"READ", user, strconv.Itoa(index)} {
		if err := c.writeLine(line); err != nil {
			return nil, err
		}
	}

	if err := c.status(); err != nil {
		return nil, err
	}

	var lines []string
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if line == bodyTerminator {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

// Delete removes message index (1-based) from user's mailbox.
func (c *Client) Delete(user string, index int) error {
	if !ValidUsername(user) {
		return ErrInvalidUsername
	}

	for _, line := range []string{"DEL", user, strconv.Itoa(index)} {
		if err := c.writeLine(line); err != nil {
			return err
		}
	}
	return c.status()
}

// Quit tells the server the session is over. The server closes the
// connection without replying.
func (c *Client) Quit() error {
	return c.writeLine("QUIT")
}
