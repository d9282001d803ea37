package client

import (
	"errors"
	"net"
	"syscall"
)

var (
	ErrConnect           = errors.New("failed to connect")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrPrecondition      = errors.New("precondition failed")
	ErrTimeout           = errors.New("timed out waiting for response")
	ErrDuplicateActionID = errors.New("action id is already pending")
	ErrEmptyActionID     = errors.New("action id is empty")
	ErrLoginFailed       = errors.New("login failed")
	ErrLogoffFailed      = errors.New("logoff failed")
	ErrClosed            = errors.New("connection is closed")
)

// IsTemporary reports whether a failed Connect was caused by a condition that
// may clear up on retry: timeouts, temporary DNS failures, and the server
// refusing or resetting the connection while it restarts.
func IsTemporary(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
