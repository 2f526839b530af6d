package gitship

import (
	"fmt"
	"os"

	"github.com/gitship/gitship/internal/configloader"
	"github.com/spf13/cobra"
)

func completeEnvironmentNames(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 && cmd.Name() != "status" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	configPath := "."
	if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
		configPath = f.Value.String()
	}

	cfg, err := configloader.LoadRaw(configPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	names := make([]string, 0, len(cfg.Deploy.Environments))
	for _, env := range cfg.Deploy.Environments {
		names = append(names, env.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func CompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate completion script",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Long: `To load completions:

Bash:
  $ source <(gitship completion bash)

Zsh:
  $ mkdir -p ~/.local/share/zsh/site-functions
  $ gitship completion zsh > ~/.local/share/zsh/site-functions/_gitship

Fish:
  $ gitship completion fish > ~/.config/fish/completions/gitship.fish

PowerShell:
  PS> gitship completion powershell > gitship.ps1
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell type: %s", args[0])
			}
		},
	}

	return cmd
}
