package gitship

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/gitship/gitship/internal/deploy"
	"github.com/gitship/gitship/internal/helpers"
	"github.com/gitship/gitship/internal/ui"
	"github.com/spf13/cobra"
)

func StatusCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "status [environment...]",
		Short:             "Show the current and previous revision of environments",
		ValidArgsFunction: completeEnvironmentNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, nil, args...)
			if err != nil {
				return err
			}
			defer a.Close()

			names := args
			if len(names) == 0 {
				names = a.registry.Names()
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				st, err := a.machine.Inspect(cmd.Context(), name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					name,
					st.Spec.Branch,
					helpers.ShortRevision(st.State.Current),
					displayPrevious(st.State.Previous),
					displayState(st.State),
				})
			}

			ui.Table([]string{"ENVIRONMENT", "BRANCH", "CURRENT", "PREVIOUS", "STATE"}, rows)
			return nil
		},
	}
	return cmd
}

func displayPrevious(rev string) string {
	if rev == "" {
		return lipgloss.NewStyle().Foreground(ui.LightGray).Italic(true).Render("none")
	}
	return helpers.ShortRevision(rev)
}

func displayState(state deploy.State) string {
	if state.Inconsistent {
		return lipgloss.NewStyle().Foreground(ui.Red).Render("Inconsistent")
	}
	return lipgloss.NewStyle().Foreground(ui.Green).Render("OK")
}

func displayOutcome(kind deploy.OutcomeKind) string {
	var color lipgloss.Color
	switch kind {
	case deploy.OutcomeSucceeded, deploy.OutcomeRolledBack, deploy.OutcomeResolved:
		color = ui.Green
	case deploy.OutcomeAbortedByCheck, deploy.OutcomeFailedAndRolledBack:
		color = ui.Amber
	case deploy.OutcomeFailed, deploy.OutcomeFailedRollbackAlsoFailed:
		color = ui.Red
	default:
		return lipgloss.NewStyle().Foreground(ui.LightGray).Italic(true).Render(string(kind))
	}
	return lipgloss.NewStyle().Foreground(color).Render(string(kind))
}

func EnvironmentsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "environments",
		Aliases: []string{"envs"},
		Short:   "List the configured environments",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			rows := make([][]string, 0)
			for _, spec := range a.registry.List() {
				rollback := "off"
				if spec.RollbackEnabled {
					rollback = string(spec.RollbackStrategy)
				}
				rows = append(rows, []string{
					spec.Name,
					spec.Branch,
					fmt.Sprintf("%d", len(spec.PreChecks)),
					fmt.Sprintf("%d", len(spec.PostActions)),
					rollback,
					spec.Repository,
				})
			}
			ui.Table([]string{"NAME", "BRANCH", "CHECKS", "ACTIONS", "ROLLBACK", "REPOSITORY"}, rows)
			return nil
		},
	}
	return cmd
}
