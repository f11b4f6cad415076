package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tally/internal/store"
)

func newClientCommand(ctx *commandContext) *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Manage portfolio clients",
	}

	clientCmd.AddCommand(newClientAddCommand(ctx))
	clientCmd.AddCommand(newClientListCommand(ctx))
	clientCmd.AddCommand(newClientSetAssigneeCommand(ctx))

	return clientCmd
}

func newClientAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var code string
	var assigneeRef string
	var chaseRefs []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				var assigneeID string
				if strings.TrimSpace(assigneeRef) != "" {
					user, err := resolveUser(cmd.Context(), st, assigneeRef)
					if err != nil {
						return err
					}
					assigneeID = user.ID
				}

				chaseTeam := make([]string, 0, len(chaseRefs))
				for _, ref := range chaseRefs {
					user, err := resolveUser(cmd.Context(), st, ref)
					if err != nil {
						return err
					}
					chaseTeam = append(chaseTeam, user.ID)
				}

				client, err := st.CreateClient(cmd.Context(), name, code, assigneeID, chaseTeam)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added client %s (%s), id %s\n", client.Name, client.Code, client.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Client name")
	cmd.Flags().StringVar(&code, "code", "", "Short client code")
	cmd.Flags().StringVar(&assigneeRef, "assignee", "", "General assigned user (id, email, or name)")
	cmd.Flags().StringArrayVar(&chaseRefs, "chase", nil, "Chase team member (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newClientListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				clients, err := st.ListClients(cmd.Context())
				if err != nil {
					return err
				}
				if len(clients) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No clients")
					return nil
				}
				rows := make([][]string, 0, len(clients))
				for _, client := range clients {
					rows = append(rows, []string{
						client.Code,
						client.Name,
						userNameByID(cmd.Context(), st, client.AssignedUserID),
						fmt.Sprintf("%d", len(client.ChaseTeam)),
					})
				}
				out := renderTable(
					[]string{"Code", "Name", "Assigned", "Chase team"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newClientSetAssigneeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-assignee <client> <user>",
		Short: "Change a client's general assigned user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				client, err := resolveClient(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				user, err := resolveUser(cmd.Context(), st, args[1])
				if err != nil {
					return err
				}
				if err := st.SetClientAssignee(cmd.Context(), client.ID, user.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now assigned to %s\n", client.Name, user.Name)
				return nil
			})
		},
	}
	return cmd
}
