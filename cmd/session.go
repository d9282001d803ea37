package cmd

import (
	"context"
	"crypto/tls"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/amictl/client"
	"github.com/luma/amictl/internal/env"
	"github.com/luma/amictl/transport"
)

var (
	amiHost     string
	amiPort     int
	amiUsername string
	amiSecret   string
	amiEvents   string
)

// loadConfig reads the environment and applies any connection flags given on
// the command line.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*env.Config, error) {
	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("host") {
		conf.Host = amiHost
	}

	if flags.Changed("port") {
		conf.Port = amiPort
	}

	if flags.Changed("username") {
		conf.Username = amiUsername
	}

	if flags.Changed("secret") {
		conf.Secret = amiSecret
	}

	if flags.Changed("events") {
		conf.Events = amiEvents
	}

	return conf, nil
}

func newConn(conf *env.Config, metrics *client.Metrics, log *zap.Logger) *client.Conn {
	dialer := transport.NewTCPDialer(transport.Options{
		TLS: conf.TLS,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		InsecureSkipVerify: conf.TLSInsecure,
		DialTimeout:        conf.DialTimeout,
		Trace:              log.Core().Enabled(zap.DebugLevel),
		Log:                log.Named("transport"),
	})

	return client.New(client.Options{
		Host:            conf.Host,
		Port:            conf.Port,
		ResponseTimeout: conf.ResponseTimeout,
		Dialer:          dialer,
		Metrics:         metrics,
		Log:             log.Named("client"),
	})
}

// openSession connects and logs in. On failure the connection is closed.
func openSession(ctx context.Context, conn *client.Conn, conf *env.Config) (err error) {
	defer func() {
		if err != nil {
			err = multierr.Append(err, conn.Close())
		}
	}()

	if err := conn.Connect(ctx, conf.Host, conf.Port); err != nil {
		return err
	}

	return conn.Login(ctx, conf.Username, conf.Secret, conf.Events)
}

// closeSession logs off, if still logged in, and closes the connection.
func closeSession(ctx context.Context, conn *client.Conn) (err error) {
	if conn.State() == client.Authenticated {
		err = conn.Logoff(ctx)
	}

	return multierr.Append(err, conn.Close())
}
