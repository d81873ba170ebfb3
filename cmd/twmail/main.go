package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/twmailer/twmaild/internal/client"
)

func main() {
	addr := flag.String("addr", "localhost:1465", "Server address (host:port)")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error connecting to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	term := client.NewTerminal(client.New(conn), os.Stdin, os.Stdout)
	if err := term.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "session error: %v\n", err)
		os.Exit(1)
	}
}
