package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tally/internal/stages"
	"tally/internal/store"
	"tally/internal/workflow"
)

func newTransitionCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var assigneeRef string
	var unassign bool
	var note string
	var actorRef string

	cmd := &cobra.Command{
		Use:   "transition <period>",
		Short: "Move a period to another stage or change its assignee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if unassign && strings.TrimSpace(assigneeRef) != "" {
				return fmt.Errorf("--assignee and --unassign are mutually exclusive")
			}
			return ctx.withEngine(func(st *store.Store, engine *workflow.Engine) error {
				period, err := resolvePeriod(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				actor, err := resolveUser(cmd.Context(), st, actorRef)
				if err != nil {
					return err
				}

				req := workflow.Request{
					PeriodID: period.ID,
					Note:     note,
					Actor:    *actor,
				}
				if trimmed := strings.TrimSpace(stageFlag); trimmed != "" {
					stage, ok := stages.ParseStage(period.Family, trimmed)
					if !ok {
						return fmt.Errorf("%q is not a stage of the %s family", trimmed, period.Family)
					}
					req.Stage = stage
				}
				switch {
				case unassign:
					req.AssigneeSet = true
				case strings.TrimSpace(assigneeRef) != "":
					assignee, err := resolveUser(cmd.Context(), st, assigneeRef)
					if err != nil {
						return err
					}
					req.AssigneeSet = true
					req.AssigneeID = assignee.ID
				}

				result, err := engine.Transition(cmd.Context(), req)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if result.History != nil {
					fmt.Fprintf(out, "%s: %s -> %s\n", result.Period.Label(),
						result.History.FromStage.Label(), result.History.ToStage.Label())
				} else {
					fmt.Fprintf(out, "%s: stage unchanged (%s)\n", result.Period.Label(), result.Period.Stage.Label())
				}
				fmt.Fprintf(out, "Assignee: %s\n", userNameByID(cmd.Context(), st, result.Period.AssigneeID))
				if len(result.MilestonesTouched) > 0 {
					names := make([]string, 0, len(result.MilestonesTouched))
					for _, m := range result.MilestonesTouched {
						names = append(names, m.Label())
					}
					fmt.Fprintf(out, "Milestones touched: %s\n", strings.Join(names, ", "))
				}
				if result.FuturesUnassigned > 0 {
					fmt.Fprintf(out, "Unassigned %d future period(s) for this client\n", result.FuturesUnassigned)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&stageFlag, "stage", "", "Target stage")
	cmd.Flags().StringVar(&assigneeRef, "assignee", "", "Explicit assignee (id, email, or name)")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "Explicitly clear the assignee")
	cmd.Flags().StringVar(&note, "note", "", "Free-text note recorded in history and notifications")
	cmd.Flags().StringVar(&actorRef, "actor", "", "Acting team member (id, email, or name)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}
