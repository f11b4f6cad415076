package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"tally/internal/stages"
	"tally/internal/store"
)

func newPeriodCommand(ctx *commandContext) *cobra.Command {
	periodCmd := &cobra.Command{
		Use:   "period",
		Short: "Manage filing periods",
	}

	periodCmd.AddCommand(newPeriodAddCommand(ctx))
	periodCmd.AddCommand(newPeriodListCommand(ctx))
	periodCmd.AddCommand(newPeriodShowCommand(ctx))
	periodCmd.AddCommand(newPeriodDueCommand(ctx))

	return periodCmd
}

func newPeriodAddCommand(ctx *commandContext) *cobra.Command {
	var clientRef string
	var familyFlag string
	var startFlag string
	var endFlag string
	var dueFlag string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a filing period",
		RunE: func(cmd *cobra.Command, args []string) error {
			family, ok := stages.ParseFamily(familyFlag)
			if !ok {
				return fmt.Errorf("--family must be quarterly or annual (got %q)", familyFlag)
			}
			end, err := parseDateFlag("end", endFlag)
			if err != nil {
				return err
			}

			start, err := defaultedDate("start", startFlag, func() time.Time {
				if family == stages.FamilyQuarterly {
					return end.AddDate(0, -3, 1)
				}
				return end.AddDate(-1, 0, 1)
			})
			if err != nil {
				return err
			}
			due, err := defaultedDate("due", dueFlag, func() time.Time {
				if family == stages.FamilyQuarterly {
					return end.AddDate(0, 1, 0)
				}
				return end.AddDate(0, 9, 0)
			})
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				client, err := resolveClient(cmd.Context(), st, clientRef)
				if err != nil {
					return err
				}
				period, err := st.CreatePeriod(cmd.Context(), client.ID, family, start, end, due)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s for %s, id %s (due %s)\n",
					family, period.Label(), client.Name, period.ID, formatDate(period.FilingDue))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&clientRef, "client", "", "Client id or code")
	cmd.Flags().StringVar(&familyFlag, "family", "", "Workflow family: quarterly or annual")
	cmd.Flags().StringVar(&startFlag, "start", "", "Period start (YYYY-MM-DD, derived from --end when omitted)")
	cmd.Flags().StringVar(&endFlag, "end", "", "Period end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dueFlag, "due", "", "Filing due date (YYYY-MM-DD, derived from --end when omitted)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("family")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func defaultedDate(name, value string, fallback func() time.Time) (time.Time, error) {
	if value == "" {
		return fallback(), nil
	}
	return parseDateFlag(name, value)
}

func newPeriodListCommand(ctx *commandContext) *cobra.Command {
	var clientRef string
	var includeCompleted bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List filing periods",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				clientID := ""
				if clientRef != "" {
					client, err := resolveClient(cmd.Context(), st, clientRef)
					if err != nil {
						return err
					}
					clientID = client.ID
				}
				periods, err := st.ListPeriods(cmd.Context(), clientID)
				if err != nil {
					return err
				}
				rows, err := buildPeriodRows(cmd, st, periods, includeCompleted)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No periods")
					return nil
				}
				out := renderTable(
					[]string{"ID", "Client", "Period", "Family", "Stage", "Assignee", "Due", "Done"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&clientRef, "client", "", "Limit to one client (id or code)")
	cmd.Flags().BoolVar(&includeCompleted, "all", false, "Include completed periods")
	return cmd
}

func buildPeriodRows(cmd *cobra.Command, st *store.Store, periods []*store.Period, includeCompleted bool) ([][]string, error) {
	clientNames := map[string]string{}
	rows := make([][]string, 0, len(periods))
	for _, period := range periods {
		if period.Completed && !includeCompleted {
			continue
		}
		name, ok := clientNames[period.ClientID]
		if !ok {
			client, err := st.GetClient(cmd.Context(), period.ClientID)
			if err != nil {
				return nil, err
			}
			if client != nil {
				name = client.Name
			}
			clientNames[period.ClientID] = name
		}
		rows = append(rows, []string{
			shortID(period.ID),
			name,
			period.Label(),
			string(period.Family),
			period.Stage.Label(),
			userNameByID(cmd.Context(), st, period.AssigneeID),
			formatDate(period.FilingDue),
			yesNo(period.Completed),
		})
	}
	return rows, nil
}

func newPeriodShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <period>",
		Short: "Show one period in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				period, err := resolvePeriod(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				client, err := st.GetClient(cmd.Context(), period.ClientID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				clientName := period.ClientID
				if client != nil {
					clientName = fmt.Sprintf("%s (%s)", client.Name, client.Code)
				}
				fmt.Fprintln(out, renderSectionHeader(fmt.Sprintf("%s %s", clientName, period.Label())))
				fmt.Fprintf(out, "ID:        %s\n", period.ID)
				fmt.Fprintf(out, "Family:    %s\n", period.Family)
				fmt.Fprintf(out, "Stage:     %s\n", period.Stage.Label())
				fmt.Fprintf(out, "Assignee:  %s\n", userNameByID(cmd.Context(), st, period.AssigneeID))
				fmt.Fprintf(out, "Runs:      %s to %s\n", formatDate(period.PeriodStart), formatDate(period.PeriodEnd))
				fmt.Fprintf(out, "Due:       %s\n", formatDate(period.FilingDue))
				fmt.Fprintf(out, "Completed: %s\n", yesNo(period.Completed))

				fmt.Fprintln(out, "Milestones:")
				for _, name := range stages.Milestones(period.Family) {
					stamp, reached := period.Milestones[name]
					detail := "-"
					if reached {
						detail = fmt.Sprintf("%s by %s", formatDate(stamp.At), stamp.ByName)
					}
					fmt.Fprintln(out, renderChecklistLine(name.Label(), reached, detail, colorize))
				}
				return nil
			})
		},
	}
}

func newPeriodDueCommand(ctx *commandContext) *cobra.Command {
	var within int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List incomplete periods approaching their filing deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				periods, err := st.PeriodsDueWithin(cmd.Context(), time.Now(), within)
				if err != nil {
					return err
				}
				if len(periods) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Nothing due within %d days\n", within)
					return nil
				}
				sort.SliceStable(periods, func(i, j int) bool {
					return periods[i].FilingDue.Before(periods[j].FilingDue)
				})
				rows, err := buildPeriodRows(cmd, st, periods, true)
				if err != nil {
					return err
				}
				out := renderTable(
					[]string{"ID", "Client", "Period", "Family", "Stage", "Assignee", "Due", "Done"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&within, "within", 30, "Horizon in days")
	return cmd
}
