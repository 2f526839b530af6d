package gitship

import (
	"github.com/gitship/gitship/internal/constants"
	"github.com/gitship/gitship/internal/ui"
	"github.com/spf13/cobra"
)

func VersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the current version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ui.Basic("%s", constants.Version)
		},
	}
	return cmd
}
