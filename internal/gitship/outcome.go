package gitship

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gitship/gitship/internal/api"
	"github.com/gitship/gitship/internal/deploy"
	"github.com/gitship/gitship/internal/helpers"
	"github.com/gitship/gitship/internal/ui"
)

// reportOutcome prints o and returns an OutcomeError unless the request succeeded.
func reportOutcome(o deploy.Outcome, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(api.NewOutcomeResponse(o), "", "  ")
		if err != nil {
			return err
		}
		ui.Basic("%s", data)
	} else {
		printOutcome(o)
	}

	switch o.Kind {
	case deploy.OutcomeSucceeded, deploy.OutcomeRolledBack, deploy.OutcomeResolved:
		return nil
	default:
		return &OutcomeError{Outcome: o}
	}
}

func printOutcome(o deploy.Outcome) {
	if o.AutoCommit != "" {
		ui.Warn("Committed local changes: %s", o.AutoCommit)
	}

	for _, a := range o.Actions {
		if a.Succeeded() {
			ui.Info("Action '%s' done (%s)", a.ID, a.Duration.Round(time.Millisecond))
		} else {
			ui.Warn("Action '%s' failed: %v", a.ID, a.Err)
		}
	}

	lines := []string{
		fmt.Sprintf("Outcome: %s", displayOutcome(o.Kind)),
		fmt.Sprintf("Current: %s", helpers.ShortRevision(o.To)),
	}
	if o.Previous != "" {
		lines = append(lines, fmt.Sprintf("Previous: %s", helpers.ShortRevision(o.Previous)))
	}
	lines = append(lines,
		fmt.Sprintf("Deployment ID: %s", o.ID),
		fmt.Sprintf("Duration: %s", o.Duration().Round(time.Millisecond)),
	)
	ui.Section(fmt.Sprintf("%s %s", o.Request, o.Environment), lines)

	switch o.Kind {
	case deploy.OutcomeSucceeded, deploy.OutcomeRolledBack, deploy.OutcomeResolved:
		ui.Success("%s", o.Summary())
	case deploy.OutcomeFailedRollbackAlsoFailed:
		ui.Error("%s", o.Summary())
		ui.Error("Repair the working tree by hand, then run 'gitship resolve %s <revision>'", o.Environment)
	}
}
