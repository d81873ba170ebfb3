package client_test

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/twmailer/twmaild/internal/client"
	"github.com/twmailer/twmaild/internal/config"
	"github.com/twmailer/twmaild/internal/logging"
	"github.com/twmailer/twmaild/internal/protocol"
	"github.com/twmailer/twmaild/internal/spool"
)

// startTestServer runs one real protocol session over net.Pipe and
// returns the client end plus a channel closed when the session ends.
func startTestServer(t *testing.T) (net.Conn, chan struct{}) {
	t.Helper()

	store, err := spool.Open(t.TempDir())
	if err != nil {
		t.Fatalf("spool.Open: %v", err)
	}

	cfg := config.Default()
	cfg.Timeouts = config.TimeoutsConfig{
		Connection: "10s",
		Command:    "10s",
		Idle:       "10s",
	}

	stack, err := protocol.NewStack(protocol.StackConfig{
		Config: cfg,
		Store:  store,
		Logger: logging.NewLogger("error"),
	})
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}

	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		_ = clientConn.Close()
	})

	done := make(chan struct{})
	go func() {
		_ = stack.RunSingleConn(context.Background(), serverConn)
		close(done)
	}()

	_ = clientConn.SetDeadline(time.Now().Add(10 * time.Second))
	return clientConn, done
}

func TestTerminal_SessionFlow(t *testing.T) {
	conn, done := startTestServer(t)

	// A full sitting: list an empty mailbox, send, read the message back
	// with the defaulted username, switch target for DEL, quit.
	input := strings.Join([]string{
		"LIST",
		"bob",
		"SEND",
		"alice",
		"bob",
		"hi bob",
		"line one",
		".",
		"READ",
		"", // accept the [bob] default
		"1",
		"DEL",
		"carol", // target change triggers an auto-list
		"1",
		"QUIT",
	}, "\n") + "\n"

	var out bytes.Buffer
	term := client.NewTerminal(client.New(conn), strings.NewReader(input), &out)

	if err := term.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after QUIT")
	}

	output := out.String()
	for _, want := range []string{
		"Messages: 0",     // LIST of the empty mailbox
		"OK",              // SEND accepted
		"Username [bob]:", // READ defaults to the last-listed user
		"hi bob",          // subject echoed by READ
		"line one",        // body echoed by READ
		"ERR",             // DEL 1 on carol's empty mailbox
		"Disconnected.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestTerminal_AutoListOnTargetChange(t *testing.T) {
	conn, done := startTestServer(t)

	// Two mailboxes. After listing alice, a READ aimed at bob must list
	// bob's mailbox before asking for the index.
	input := strings.Join([]string{
		"SEND", "alice", "bob", "for bob", ".",
		"SEND", "bob", "alice", "for alice", ".",
		"LIST", "alice",
		"READ", "bob", "1",
		"QUIT",
	}, "\n") + "\n"

	var out bytes.Buffer
	term := client.NewTerminal(client.New(conn), strings.NewReader(input), &out)

	if err := term.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	<-done

	output := out.String()
	autoList := strings.Index(output, "1) for bob")
	readBack := strings.Index(output, "for bob\n.")
	if autoList == -1 {
		t.Fatalf("output missing bob's auto-list:\n%s", output)
	}
	if readBack == -1 || readBack < autoList {
		t.Errorf("READ output should follow the auto-list:\n%s", output)
	}
}

func TestTerminal_UnknownAndLowercaseVerbs(t *testing.T) {
	conn, done := startTestServer(t)

	// Verbs typed at the prompt are upper-cased locally, so "list" works
	// here even though the wire protocol is case-sensitive.
	input := strings.Join([]string{
		"FROB",
		"list",
		"bob",
		"QUIT",
	}, "\n") + "\n"

	var out bytes.Buffer
	term := client.NewTerminal(client.New(conn), strings.NewReader(input), &out)

	if err := term.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	<-done

	output := out.String()
	if !strings.Contains(output, "Unknown command") {
		t.Errorf("output missing unknown-command notice:\n%s", output)
	}
	if !strings.Contains(output, "Messages: 0") {
		t.Errorf("lower-case list should still reach the server:\n%s", output)
	}
}

func TestTerminal_EndOfInputQuits(t *testing.T) {
	conn, done := startTestServer(t)

	var out bytes.Buffer
	term := client.NewTerminal(client.New(conn), strings.NewReader(""), &out)

	if err := term.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end after input ran out")
	}
}
