package transport

import (
	"crypto/tls"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

type Options struct {
	// TLS wraps the connection in TLS when true
	TLS bool

	// TLSConfig is used when TLS is true. A nil config verifies the server
	// against the system roots.
	TLSConfig *tls.Config

	// InsecureSkipVerify disables certificate verification. Only useful against
	// test servers with self signed certificates.
	InsecureSkipVerify bool

	DialTimeout time.Duration

	// WriteTimeout bounds a single Write so a stuck peer can't hold the
	// connection's write lock forever
	WriteTimeout time.Duration

	// Trace will dump raw bytes to the log at debug level. This is only useful in local debugging
	Trace bool

	Log *zap.Logger
}
