package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thomhug/resumedit/internal/cli/formatter"
	"github.com/thomhug/resumedit/internal/domain"
)

func newUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users on the server",
	}
	cmd.AddCommand(newUserCreateCmd(app), newUserListCmd(app))
	return cmd
}

func newUserCreateCmd(app *App) *cobra.Command {
	var fields fieldsFlag
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFields(domain.KindUser, fields); err != nil {
				return err
			}
			u, err := app.Server.CreateUser(cmd.Context(), fields)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created user %s (%s)\n", formatter.Bold(u.Fields["name"]), u.ID)
			fmt.Fprintln(out, formatter.Dim("Set RESUMEDIT_USER="+u.ID+" or user_id in the config file to use it."))
			return nil
		},
	}
	addFieldsFlag(cmd.Flags(), &fields)
	return cmd
}

func newUserListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := app.Server.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No users yet. Create one with `resumedit user create -f name=...`."))
				return nil
			}
			rows := make([][]string, len(users))
			for i, u := range users {
				marker := ""
				if u.ID == app.Config.UserID {
					marker = formatter.StyleGreen.Render("●")
				}
				rows[i] = []string{marker, u.ID, u.Fields["name"], u.Fields["email"]}
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"", "ID", "NAME", "EMAIL"}, rows))
			return nil
		},
	}
}
