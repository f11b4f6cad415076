package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tally/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <period>",
		Short: "Show the transition history of a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				period, err := resolvePeriod(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				entries, err := st.History(cmd.Context(), period.ID)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No history")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					from := "-"
					if entry.FromStage != "" {
						from = entry.FromStage.Label()
					}
					days := "-"
					if entry.DaysInPreviousStage != nil {
						days = fmt.Sprintf("%d", *entry.DaysInPreviousStage)
					}
					rows = append(rows, []string{
						entry.At.UTC().Format(time.RFC3339),
						from,
						entry.ToStage.Label(),
						days,
						entry.ActorName,
						entry.Note,
					})
				}
				out := renderTable(
					[]string{"At", "From", "To", "Days", "Actor", "Note"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}
