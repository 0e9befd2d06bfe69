package transport

import (
	"errors"
	"fmt"
)

// Error wraps a connection-level failure: refused connection, TLS handshake,
// timeout, unreadable body. Business failures never take this path.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport error [%s]: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is (or wraps) a transport failure.
func IsTransportError(err error) (*Error, bool) {
	var terr *Error
	ok := errors.As(err, &terr)
	return terr, ok
}
