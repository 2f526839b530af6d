package gitship

import (
	"github.com/gitship/gitship/internal/ui"
	"github.com/spf13/cobra"
)

func DeployCmd(flags *rootFlags) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "deploy <environment> [revision]",
		Short: "Deploy a revision to an environment",
		Long: `Deploy a revision to an environment.

Pre-deployment checks run first and abort the deployment when one fails. The revision
is checked out and force pushed to the remote, then post-deployment actions run. If
publishing fails and rollback is enabled for the environment, the previous revision is
restored. Without a revision argument the environment's branch is deployed.`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeEnvironmentNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := args[0]
			var target string
			if len(args) == 2 {
				target = args[1]
			}

			a, err := newApp(flags, nil, env)
			if err != nil {
				return err
			}
			defer a.Close()

			if !jsonFlag {
				ui.Info("Deploying %s to %s", displayTarget(target), env)
			}
			outcome, err := a.machine.Deploy(cmd.Context(), env, target)
			if err != nil {
				return err
			}
			return reportOutcome(outcome, jsonFlag)
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the outcome as JSON")
	return cmd
}

func RollbackCmd(flags *rootFlags) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:               "rollback <environment>",
		Short:             "Restore the previous revision of an environment",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEnvironmentNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := args[0]

			a, err := newApp(flags, nil, env)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.machine.Rollback(cmd.Context(), env)
			if err != nil {
				return err
			}
			return reportOutcome(outcome, jsonFlag)
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the outcome as JSON")
	return cmd
}

func ResolveCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <environment> <revision>",
		Short: "Record the live revision after a manual repair",
		Long: `Record the revision that is live in an environment after its working tree was
repaired by hand. This clears the inconsistent state left by a failed rollback and
forgets the previous revision.`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeEnvironmentNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, nil, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.machine.Resolve(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return reportOutcome(outcome, false)
		},
	}
	return cmd
}

func displayTarget(target string) string {
	if target == "" {
		return "the configured branch"
	}
	return target
}
