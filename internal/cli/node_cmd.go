package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/thomhug/resumedit/internal/cli/formatter"
	"github.com/thomhug/resumedit/internal/domain"
)

func newShowCmd(app *App) *cobra.Command {
	var deleted bool
	cmd := &cobra.Command{
		Use:   "show [NODE]",
		Short: "Show the local tree, or one node in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(ctx, cmd, app)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprint(out, formatter.FormatTree(st.Tree(), deleted))
				if st.Empty() {
					return nil
				}
				status := formatter.Dim("in sync")
				if st.Dirty() {
					status = formatter.StyleYellow.Render("unsynced edits")
				}
				synced := "never"
				if at, err := st.LastSynced(ctx); err == nil && at != nil {
					synced = formatter.HumanTimestamp(*at, app.now())
				}
				fmt.Fprintf(out, "\n%s  %s\n", status, formatter.Dim("last sync: "+synced))
				return nil
			}

			if st.Empty() {
				return fmt.Errorf("%w for %s; run `resumedit open` first", errNothingLoaded, st.Kind())
			}
			id, err := resolveNode(st, args[0])
			if err != nil {
				return err
			}
			n, _ := st.Node(id).Get()
			fmt.Fprint(out, formatter.FormatNode(n, app.now()))
			if items := formatter.TreeItems(st.Tree(), id, deleted); len(items) > 1 {
				fmt.Fprintln(out)
				fmt.Fprint(out, formatter.RenderTree(items))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleted, "deleted", false, "Include deleted nodes")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	var fields fieldsFlag
	var at int
	cmd := &cobra.Command{
		Use:   "add PARENT",
		Short: "Add a child under PARENT (use . for the root)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := loadedStore(ctx, cmd, app)
			if err != nil {
				return err
			}
			parentID, err := resolveNode(st, args[0])
			if err != nil {
				return err
			}
			parent, _ := st.Node(parentID).Get()
			childKind, ok := domain.ChildKind(parent.Kind)
			if ok {
				if err := checkFields(childKind, fields); err != nil {
					return err
				}
			}

			var id string
			if cmd.Flags().Changed("at") {
				id, err = st.AddChildAt(ctx, parentID, fields, at)
			} else {
				id, err = st.AddChild(ctx, parentID, fields)
			}
			if err != nil {
				return err
			}
			n, _ := st.Node(id).Get()
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s)\n", n.Kind, formatter.Bold(n.Title()), formatter.ShortID(id))
			return nil
		},
	}
	addFieldsFlag(cmd.Flags(), &fields)
	cmd.Flags().IntVar(&at, "at", 0, "Insert before the N-th visible child (0-based)")
	return cmd
}

func newSetCmd(app *App) *cobra.Command {
	var fields fieldsFlag
	cmd := &cobra.Command{
		Use:   "set NODE",
		Short: "Change fields of a node",
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
			n, _ := st.Node(id).Get()
			if err := checkFields(n.Kind, fields); err != nil {
				return err
			}
			if err := st.SetFields(ctx, id, fields); err != nil {
				return err
			}
			n, _ = st.Node(id).Get()
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", n.Kind, formatter.Bold(n.Title()))
			return nil
		},
	}
	addFieldsFlag(cmd.Flags(), &fields)
	return cmd
}

func newRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NODE",
		Short: "Delete a node and everything below it",
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
			parentID, err := parentOf(st, id)
			if err != nil {
				return err
			}
			n, _ := st.Node(id).Get()
			if err := st.MarkChildDeleted(ctx, parentID, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", n.Kind, formatter.Bold(n.Title()))
			return nil
		},
	}
}

func newMoveCmd(app *App) *cobra.Command {
	var to int
	cmd := &cobra.Command{
		Use:   "move NODE",
		Short: "Move a node to another position among its siblings",
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
			parentID, err := parentOf(st, id)
			if err != nil {
				return err
			}

			order := make([]string, 0)
			for _, c := range st.Node(parentID).Children(false) {
				if c.ClientID != id {
					order = append(order, c.ClientID)
				}
			}
			to = min(max(to, 0), len(order))
			order = slices.Insert(order, to, id)

			if err := st.ReArrangeChildren(ctx, parentID, order); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTree(formatter.TreeItems(st.Tree(), parentID, false)))
			return nil
		},
	}
	cmd.Flags().IntVar(&to, "to", 0, "Target position (0-based)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newRebalanceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance [NODE]",
		Short: "Respace the order keys of a node's children",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := loadedStore(ctx, cmd, app)
			if err != nil {
				return err
			}
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			id, err := resolveNode(st, ref)
			if err != nil {
				return err
			}
			if err := st.ResetChildrenOrderValues(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rebalanced %d children\n", len(st.Node(id).Children(true)))
			return nil
		},
	}
}
