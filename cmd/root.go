package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/amictl/cmd/gen"
	"github.com/luma/amictl/internal/meta"
)

var RootCmd = &cobra.Command{
	Use:   "amictl",
	Short: "Talk to an Asterisk Manager Interface",
	Long: `amictl connects to an Asterisk Manager Interface, logs in and either
sends one-off actions or keeps a live view of channel state.

Connection settings come from AMI_* environment variables, optionally
from a .env.local file, and can be overridden with flags.`,
	SilenceUsage: true,
}

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), meta.GetInfo())
	},
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&amiHost, "host", "H", "", "The manager host, overrides AMI_HOST")
	flags.IntVarP(&amiPort, "port", "p", 0, "The manager port, overrides AMI_PORT")
	flags.StringVarP(&amiUsername, "username", "u", "", "The manager username, overrides AMI_USERNAME")
	flags.StringVar(&amiSecret, "secret", "", "The manager secret, overrides AMI_SECRET")
	flags.StringVar(&amiEvents, "events", "", "The event mask to log in with, overrides AMI_EVENTS")

	RootCmd.AddCommand(MonitorCmd)
	RootCmd.AddCommand(ActionCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
