package session

import "errors"

var (
	ErrTLSAlreadySetUp = errors.New("session: TLS already set up on this connection")
	ErrTLSNotAvailable = errors.New("session: TLS is not available on this listener")
)
