package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/luma/amictl/transport"
)

const (
	DefaultHost            = "localhost"
	DefaultPort            = 5038
	DefaultResponseTimeout = 2 * time.Second
	DefaultPollInterval    = 100 * time.Millisecond
)

type Options struct {
	// Host and Port are used by Connect when it isn't given an address
	Host string
	Port int

	// ResponseTimeout applies to actions sent without an explicit timeout
	ResponseTimeout time.Duration

	// PollInterval bounds how long the read loop waits for data before
	// checking whether it has been stopped
	PollInterval time.Duration

	// Dialer opens the transport. Defaults to a plain TCP dialer.
	Dialer transport.Dialer

	// Metrics defaults to a fresh, unregistered set of counters
	Metrics *Metrics

	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Host == "" {
		o.Host = DefaultHost
	}

	if o.Port <= 0 {
		o.Port = DefaultPort
	}

	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = DefaultResponseTimeout
	}

	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	if o.Dialer == nil {
		o.Dialer = transport.NewTCPDialer(transport.Options{
			Log: o.Log.Named("transport"),
		})
	}

	if o.Metrics == nil {
		o.Metrics = NewMetrics()
	}

	return o
}
