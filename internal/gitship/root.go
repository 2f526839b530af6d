package gitship

import (
	"context"
	"os"
	"strconv"

	"github.com/gitship/gitship/internal/config"
	"github.com/gitship/gitship/internal/constants"
	"github.com/gitship/gitship/internal/ui"
	"github.com/spf13/cobra"
)

// rootFlags holds the values for flags shared by every command.
type rootFlags struct {
	configPath string
	debug      bool
	logFormat  string
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "gitship",
		Short: "gitship deploys git revisions to environments with checks and automatic rollback",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnvFiles() // load environment variables in .env for all commands.

			if v, ok := os.LookupEnv(constants.EnvVarDebug); ok && !cmd.Flags().Changed("debug") {
				flags.debug, _ = strconv.ParseBool(v)
			}
			ui.DebugEnabled = flags.debug
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", ".", "Path to config file or directory")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(
		DeployCmd(flags),
		RollbackCmd(flags),
		ResolveCmd(flags),
		StatusCmd(flags),
		HistoryCmd(flags),
		EnvironmentsCmd(flags),
		ValidateConfigCmd(flags),
		ServeCmd(flags),
		VersionCmd(),
		CompletionCmd(),
	)

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.Error("%v", err)
		return getExitCode(err)
	}
	return ExitSuccess
}
