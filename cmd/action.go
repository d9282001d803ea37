package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/amictl/internal/env"
	"github.com/luma/amictl/protocol"
)

var (
	// Print the action instead of sending it
	dryRun bool

	// How long to wait for the response
	actionTimeout time.Duration
)

func init() {
	flags := ActionCmd.Flags()

	flags.BoolVar(&dryRun, "dry-run", false, "Print the action as it would be sent, without connecting")
	flags.DurationVar(&actionTimeout, "timeout", 0, "How long to wait for the response, defaults to AMI_RESPONSE_TIMEOUT")
}

var ActionCmd = &cobra.Command{
	Use:   "action <Name> [Key=Value ...]",
	Short: "Send a single action and print the response",
	Long: `Send a single action and print the response

Logs in, sends the named action with the given fields, prints the response
as it came off the wire and logs off again.

Usage
	amictl action Ping
	amictl action Command Command="core show channels"
	amictl action Originate Channel=PJSIP/100 Context=default Exten=200 Priority=1 --dry-run

`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := buildAction(args[0], args[1:])
		if err != nil {
			return err
		}

		if dryRun {
			return protocol.WriteAction(cmd.OutOrStdout(), action)
		}

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

		// Events would only get in the way of a one-off action
		conf.Events = "off"

		conn := newConn(conf, nil, log)
		if err := openSession(ctx, conn, conf); err != nil {
			return err
		}
		defer func() {
			if err := closeSession(context.Background(), conn); err != nil {
				log.Warn("Session did not close cleanly", zap.Error(err))
			}
		}()

		resp, err := conn.SyncSendAction(ctx, action, actionTimeout)
		if err != nil {
			return err
		}

		if err := printResponse(cmd.OutOrStdout(), resp); err != nil {
			return err
		}

		return resp.ErrorOrNil()
	},
}

// buildAction makes an action named name from Key=Value arguments, in the
// order given.
func buildAction(name string, fields []string) (*protocol.Action, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("action name is empty")
	}

	action := protocol.NewAction(name)

	for _, field := range fields {
		key, value, ok := cutField(field)
		if !ok {
			return nil, fmt.Errorf("expected Key=Value, got %q", field)
		}

		if strings.EqualFold(key, protocol.FieldAction) {
			return nil, fmt.Errorf("the action name is given as the first argument, not as a field")
		}

		action.Set(key, value)
	}

	return action, nil
}

func cutField(field string) (key, value string, ok bool) {
	i := strings.IndexByte(field, '=')
	if i <= 0 {
		return "", "", false
	}

	return strings.TrimSpace(field[:i]), field[i+1:], true
}

// printResponse writes the response fields in wire order, followed by the
// free text output of a Follows response.
func printResponse(w io.Writer, resp *protocol.Response) error {
	for _, key := range resp.Keys() {
		if key == protocol.UnparsedKey {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s%s%s\n", key, protocol.Separator, resp.Get(key)); err != nil {
			return err
		}
	}

	if resp.Type == protocol.RespFollows {
		output := protocol.CommandResponse{Response: resp}.Output()
		if output != "" {
			if _, err := fmt.Fprintf(w, "\n%s\n", strings.ReplaceAll(output, "\r\n", "\n")); err != nil {
				return err
			}
		}
	}

	return nil
}
