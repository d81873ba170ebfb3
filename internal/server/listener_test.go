package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

// startListener runs a Listener on a random localhost port and returns
// its address.
func startListener(t *testing.T, cfg ListenerConfig) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	cfg.Address = addr
	l := NewListener(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	started := make(chan error, 1)
	go func() {
		started <- l.Start(ctx)
	}()

	// Wait until the port accepts connections.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = c.Close()
			return addr
		}
		select {
		case err := <-started:
			t.Fatalf("listener exited early: %v", err)
		default:
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("listener did not start on %s", addr)
	return ""
}

func TestListener_DispatchesConnections(t *testing.T) {
	handler := func(ctx context.Context, conn *Connection) {
		line, err := conn.ReadLine()
		if err != nil {
			return
		}
		_ = conn.WriteLine("echo " + line)
	}

	addr := startListener(t, ListenerConfig{
		MaxConnections: 4,
		Handler:        handler,
	})

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := conn.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.TrimRight(line, "\n"); got != "echo hello" {
		t.Errorf("response = %q, want %q", got, "echo hello")
	}
}

func TestListener_RejectsOverLimit(t *testing.T) {
	// The handler holds its slot until the client hangs up, so the
	// startListener probe connection releases its slot immediately.
	handler := func(ctx context.Context, conn *Connection) {
		_, _ = conn.ReadLine()
	}

	addr := startListener(t, ListenerConfig{
		MaxConnections: 1,
		Handler:        handler,
	})

	// Let the probe connection's handler finish and release its slot.
	time.Sleep(50 * time.Millisecond)

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()

	// Give the accept loop time to hand the first connection off.
	time.Sleep(50 * time.Millisecond)

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The over-limit connection is closed without any protocol traffic.
	buf := make([]byte, 1)
	if _, err := second.Read(buf); err == nil {
		t.Error("expected second connection to be closed by the server")
	}
}

func TestListener_StopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	l := NewListener(ListenerConfig{
		Address: addr,
		Handler: func(ctx context.Context, conn *Connection) {},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancellation")
	}
}
