package server

import "errors"

// ErrTooManyConnections is returned when the connection limit is reached.
var ErrTooManyConnections = errors.New("too many connections")
