package gitship

import (
	"encoding/json"
	"errors"

	"github.com/gitship/gitship/internal/deploy"
	"github.com/gitship/gitship/internal/helpers"
	"github.com/gitship/gitship/internal/ui"
	"github.com/spf13/cobra"
)

func HistoryCmd(flags *rootFlags) *cobra.Command {
	var limit int
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:               "history <environment>",
		Short:             "List recent deployments of an environment",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEnvironmentNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			env := args[0]

			a, err := newApp(flags, nil, env)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.registry.Lookup(env); err != nil {
				return err
			}

			records, err := a.history.GetDeploymentHistory(cmd.Context(), env, limit)
			if err != nil {
				return err
			}

			if jsonFlag {
				data, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return err
				}
				ui.Basic("%s", data)
				return nil
			}

			if len(records) == 0 {
				ui.Info("No deployments recorded for %s", env)
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, d := range records {
				detail := d.Cause
				if d.FailedCheck != "" {
					detail = d.FailedCheck + ": " + d.Cause
				}
				if d.RollbackCause != "" {
					detail += "; rollback: " + d.RollbackCause
				}
				rows = append(rows, []string{
					d.ID,
					d.Request,
					displayOutcome(deploy.OutcomeKind(d.Outcome)),
					helpers.ShortRevision(d.FromRevision),
					helpers.ShortRevision(d.ToRevision),
					helpers.FormatTime(d.StartedAt),
					detail,
				})
			}
			ui.Table([]string{"ID", "REQUEST", "OUTCOME", "FROM", "TO", "STARTED", "DETAIL"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of deployments to show")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the records as JSON")
	return cmd
}
