package plex

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrUnsupportedVersion is wrapped when the server fails PLEX_MIN_VERSION.
var ErrUnsupportedVersion = errors.New("unsupported Plex server version")

// ConnectError is a failed session connect. Error names the server and is
// meant for logs; use Reason for caller-facing text.
type ConnectError struct {
	BaseURL string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to Plex at %s: %v", e.BaseURL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IsTransportError reports failures below HTTP: refused connections, DNS,
// resets and timeouts. A cached session that hits one is likely stale.
func IsTransportError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// Reason reduces a Plex failure to a short message free of URLs, tokens and
// log prefixes.
func Reason(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	var plexErr *Error
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Plex rejected the configured token"
	case errors.Is(err, ErrUnsupportedVersion):
		return ErrUnsupportedVersion.Error()
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection reset"
	case errors.As(err, &dnsErr):
		return "host not found"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "connection timed out"
	case errors.As(err, &plexErr):
		return "Plex returned " + plexErr.Status
	case errors.As(err, &netErr):
		return "network error"
	}
	return "server unreachable"
}
