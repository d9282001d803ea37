package gen

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:    "gen",
	Short:  "Generate amictl documentation",
	Long:   `Generate documentation for amictl, such as man pages.`,
	Hidden: true,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}
