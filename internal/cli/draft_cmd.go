package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thomhug/resumedit/internal/cli/formatter"
)

func newDraftCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Stage a new child before adding it",
	}
	cmd.AddCommand(newDraftSetCmd(app), newDraftCommitCmd(app))
	return cmd
}

func newDraftSetCmd(app *App) *cobra.Command {
	var fields fieldsFlag
	cmd := &cobra.Command{
		Use:   "set PARENT",
		Short: "Merge fields into the pending child of PARENT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := loadedStore(ctx, cmd, app)
			if err != nil {
				return err
			}
			id, err := resolveNode(st, args[0])
			if err != nil {
				return err
			}
			if err := st.UpdateChildDraft(ctx, id, fields); err != nil {
				return err
			}
			n, _ := st.Node(id).Get()
			draft := fieldsFlag(n.Draft)
			fmt.Fprintf(cmd.OutOrStdout(), "Draft under %s: %s\n", formatter.Bold(n.Title()), draft.String())
			return nil
		},
	}
	addFieldsFlag(cmd.Flags(), &fields)
	return cmd
}

func newDraftCommitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "commit PARENT",
		Short: "Add the pending child of PARENT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := loadedStore(ctx, cmd, app)
			if err != nil {
				return err
			}
			id, err := resolveNode(st, args[0])
			if err != nil {
				return err
			}
			childID, err := st.CommitChildDraft(ctx, id)
			if err != nil {
				return err
			}
			n, _ := st.Node(childID).Get()
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", n.Kind, formatter.Bold(n.Title()), formatter.ShortID(childID))
			return nil
		},
	}
}
