package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	readBufferSize = 64 * 1024
)

var (
	ErrOpen   = errors.New("failed to open connection")
	ErrWrite  = errors.New("failed to write to connection")
	ErrRead   = errors.New("failed to read from connection")
	ErrClosed = errors.New("connection closed")
)

// OpenError is returned by Dialer.Open. It matches ErrOpen with errors.Is and
// unwraps to the underlying network error.
type OpenError struct {
	Address string
	Err     error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s to %s: %v", ErrOpen, e.Address, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// Transport is a byte stream to the manager. Reads happen on a single read
// loop; writes may come from any goroutine but must be serialised by the caller.
type Transport interface {
	// Write writes all of p or returns an error wrapping ErrWrite.
	Write(p []byte) error

	// PollReadable waits up to timeout for data to become readable. It returns
	// false with a nil error when the timeout elapsed without data.
	PollReadable(timeout time.Duration) (bool, error)

	// Read reads whatever is available, up to len(p) bytes.
	Read(p []byte) (int, error)

	Close() error
}

// Dialer opens transports.
type Dialer interface {
	Open(ctx context.Context, address string) (Transport, error)
}

type TCPDialer struct {
	opts Options
	log  *zap.Logger
}

func NewTCPDialer(opts Options) *TCPDialer {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &TCPDialer{
		opts: opts,
		log:  log,
	}
}

// Open dials address, wrapping the connection in TLS if configured to.
func (d *TCPDialer) Open(ctx context.Context, address string) (Transport, error) {
	dialer := &net.Dialer{Timeout: d.opts.DialTimeout}

	var (
		conn net.Conn
		err  error
	)

	if d.opts.TLS {
		config := d.opts.TLSConfig
		if config == nil {
			config = &tls.Config{}
		} else {
			config = config.Clone()
		}

		if d.opts.InsecureSkipVerify {
			config.InsecureSkipVerify = true
		}

		if config.ServerName == "" {
			if host, _, serr := net.SplitHostPort(address); serr == nil {
				config.ServerName = host
			}
		}

		conn, err = dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			tlsConn := tls.Client(conn, config)
			if err = tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
			} else {
				conn = tlsConn
			}
		}
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}

	if err != nil {
		return nil, &OpenError{Address: address, Err: err}
	}

	d.log.Info("Opened connection",
		zap.String("address", address),
		zap.Bool("tls", d.opts.TLS))

	return NewConnTransport(conn, d.opts.WriteTimeout, d.opts.Trace, d.log), nil
}

// ConnTransport is a Transport over any net.Conn.
type ConnTransport struct {
	conn   net.Conn
	reader *bufio.Reader

	writeTimeout time.Duration
	trace        bool

	closeOnce sync.Once
	closeErr  error

	log *zap.Logger
}

func NewConnTransport(conn net.Conn, writeTimeout time.Duration, trace bool, log *zap.Logger) *ConnTransport {
	if log == nil {
		log = zap.NewNop()
	}

	return &ConnTransport{
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, readBufferSize),
		writeTimeout: writeTimeout,
		trace:        trace,
		log:          log,
	}
}

func (t *ConnTransport) Write(p []byte) error {
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}

	if t.trace {
		t.log.Debug("OUT", zap.ByteString("data", p))
	}

	if _, err := t.conn.Write(p); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	return nil
}

func (t *ConnTransport) PollReadable(timeout time.Duration) (bool, error) {
	if t.reader.Buffered() > 0 {
		return true, nil
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false, t.readError(err)
	}

	if _, err := t.reader.Peek(1); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return false, nil
		}

		return false, t.readError(err)
	}

	return true, nil
}

func (t *ConnTransport) Read(p []byte) (int, error) {
	n, err := t.reader.Read(p)

	if t.trace && n > 0 {
		t.log.Debug("IN", zap.ByteString("data", p[:n]))
	}

	if err != nil {
		return n, t.readError(err)
	}

	return n, nil
}

// Close closes the underlying connection. It is safe to call more than once.
func (t *ConnTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})

	return t.closeErr
}

func (t *ConnTransport) readError(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}

	return fmt.Errorf("%w: %v", ErrRead, err)
}

var _ Transport = (*ConnTransport)(nil)
var _ Dialer = (*TCPDialer)(nil)
