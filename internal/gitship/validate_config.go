package gitship

import (
	"fmt"
	"path/filepath"

	"github.com/gitship/gitship/internal/checks"
	"github.com/gitship/gitship/internal/config"
	"github.com/gitship/gitship/internal/configloader"
	"github.com/gitship/gitship/internal/logging"
	"github.com/gitship/gitship/internal/registry"
	"github.com/gitship/gitship/internal/ui"
	"github.com/spf13/cobra"
)

func ValidateConfigCmd(flags *rootFlags) *cobra.Command {
	var showResolvedConfigFlag bool
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Validate a gitship config file",
		Long:  "Validate a gitship configuration file, its environments and its check and action definitions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := configloader.FindConfigFile(flags.configPath)
			if err != nil {
				return err
			}

			cfg, err := configloader.Load(configFile)
			if err != nil {
				return fmt.Errorf("unable to load config file from %s: %w", flags.configPath, err)
			}

			reg, err := registry.FromConfig(cfg, filepath.Dir(configFile))
			if err != nil {
				return err
			}
			if _, err := checks.FromConfig(cfg, logging.Discard()); err != nil {
				return err
			}

			if showResolvedConfigFlag {
				format := cfg.Format
				if formatFlag != "" {
					format = formatFlag
				}
				if err := displayResolvedConfig(cfg, format); err != nil {
					return fmt.Errorf("failed to display resolved config: %w", err)
				}
				for _, spec := range reg.List() {
					ui.Section(fmt.Sprintf("Environment %s", spec.Name), []string{
						fmt.Sprintf("Branch: %s", spec.Branch),
						fmt.Sprintf("Repository: %s", spec.Repository),
						fmt.Sprintf("Remote: %s", spec.Remote),
						fmt.Sprintf("Baseline: %s", spec.Baseline),
						fmt.Sprintf("Rollback: %t (%s)", spec.RollbackEnabled, spec.RollbackStrategy),
					})
				}
			}

			ui.Success("Config file '%s' is valid!", filepath.Base(configFile))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showResolvedConfigFlag, "show-resolved-config", false, "Print the resolved configuration with env vars interpolated (WARNING: sensitive data will be displayed)")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Format for --show-resolved-config: yaml, json or toml (default: format of the config file)")
	return cmd
}

func displayResolvedConfig(cfg config.Config, format string) error {
	data, err := config.Marshal(cfg, format)
	if err != nil {
		return err
	}
	ui.Section(fmt.Sprintf("Resolved Configuration for %s", cfg.Deploy.Project), []string{string(data)})
	return nil
}
