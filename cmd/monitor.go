package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	reuseport "github.com/kavu/go_reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/amictl/client"
	"github.com/luma/amictl/internal/env"
	"github.com/luma/amictl/internal/meta"
	"github.com/luma/amictl/protocol"
	"github.com/luma/amictl/storage"
)

var (
	// The host to serve the monitor API on
	httpHost string

	// The port to serve the monitor API on
	httpPort int

	// Print every store update to stdout
	follow bool
)

func init() {
	flags := MonitorCmd.Flags()

	flags.StringVar(&httpHost, "http-host", "127.0.0.1", "The host to serve the monitor API on")
	flags.IntVar(&httpPort, "http-port", 7362, "The port to serve the monitor API on")
	flags.BoolVarP(&follow, "follow", "f", false, "Print every channel update to stdout as a JSON line")
}

var MonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Track live channel state and serve it over HTTP",
	Long: `Track live channel state and serve it over HTTP

Logs in to the manager and folds Newchannel, Newstate, VarSet and Hangup
events into a JSON document of live channels, served on:

	/ping              liveness
	/state             connection state
	/channels          every live channel
	/channel/<name>    a single channel
	/store             the whole document
	/metrics           Prometheus metrics

Usage
	amictl monitor --http-port 7362 --follow

`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, err := loadConfig(ctx, cmd)
		if err != nil {
			return err
		}

		log, err := env.MakeLogger(conf.LogLevel)
		if err != nil {
			return err
		}
		defer log.Sync() // nolint: errcheck

		log.Info("Starting monitor",
			zap.Stringer("build", meta.GetInfo()),
			zap.Any("config", conf.Redacted()))

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)

		metrics := client.NewMetrics()
		if err := metrics.Register(registry); err != nil {
			return err
		}

		store := storage.NewInmemoryStore()
		defer store.Close()

		if follow {
			go printUpdates(cmd.OutOrStdout(), store.ListenToUpdates(), log)
		}

		conn := newConn(conf, metrics, log)

		tracker := storage.NewChannelTracker(store, log.Named("channels"))
		conn.AddEventListener(tracker.HandleEvent)
		conn.AddEventListener(func(event *protocol.Event) {
			if event.Is(protocol.EventFullyBooted) {
				setManagerField(store, "status", protocol.FullyBootedEvent{Event: event}.Status(), log)
			}
		})

		// Stop when the manager goes away; there is nothing to monitor
		lost := make(chan error, 1)
		conn.OnDisconnect(func(err error) {
			if err == nil {
				return
			}

			select {
			case lost <- err:
			default:
			}
		})

		if err := openSession(ctx, conn, conf); err != nil {
			return err
		}

		setManagerField(store, "version", conn.Version().String(), log)

		router := setupRouter(conf.DebugHTTP, log.Named("http"))
		registerMonitorRoutes(router, store, conn, registry)

		addr := net.JoinHostPort(httpHost, strconv.Itoa(httpPort))

		// SO_REUSEPORT lets a replacement monitor bind before this one exits
		listener, err := reuseport.Listen("tcp", addr)
		if err != nil {
			return multierr.Append(err, closeSession(context.Background(), conn))
		}

		s := &http.Server{
			Handler: router,
		}

		// Serve in a goroutine so that it won't block the graceful shutdown
		// handling below
		go func() {
			if err := s.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		log.Info("Monitoring",
			zap.String("manager", net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port))),
			zap.Stringer("version", conn.Version()),
			zap.String("http", addr))

		select {
		case <-ctx.Done():
		case lostErr := <-lost:
			log.Error("Lost connection to the manager", zap.Error(lostErr))
			err = lostErr
		}

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The server has 5 seconds to finish the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if shutdownErr := s.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error("Http server forced to shutdown", zap.Error(shutdownErr))
		}

		if closeErr := closeSession(shutdownCtx, conn); closeErr != nil {
			log.Warn("Session did not close cleanly", zap.Error(closeErr))
		}

		log.Info("Exiting")

		return err
	},
}

func setManagerField(store storage.Store, field, value string, log *zap.Logger) {
	if err := store.Set(context.Background(), storage.Path("manager", field), value); err != nil {
		log.Warn("Failed to record manager field", zap.String("field", field), zap.Error(err))
	}
}

// printUpdates writes one JSON line per store update until updates is closed.
func printUpdates(w io.Writer, updates <-chan *storage.Update, log *zap.Logger) {
	for update := range updates {
		line, err := formatUpdate(update)
		if err != nil {
			log.Warn("Failed to format update", zap.ByteString("key", update.Key), zap.Error(err))
			continue
		}

		fmt.Fprintf(w, "%s\n", line)
	}
}

func formatUpdate(update *storage.Update) ([]byte, error) {
	line, err := sjson.SetBytes([]byte("{}"), "key", string(update.Key))
	if err != nil {
		return nil, err
	}

	if update.Deleted {
		return sjson.SetBytes(line, "deleted", true)
	}

	return sjson.SetRawBytes(line, "value", update.Value)
}
