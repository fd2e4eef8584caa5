package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thomhug/resumedit/internal/cli/formatter"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/service"
	"go.uber.org/zap"
)

func newOpenCmd(app *App) *cobra.Command {
	var userID, id string
	var create, discard bool
	var fields fieldsFlag

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Load a subtree from the server into the local store",
		Long: `Load a subtree from the server into the local store.

Without --id the most recently modified node is picked at every level
below the user. With --create a new node is added on the server when the
level being opened is still empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, err := kindFlag(cmd)
			if err != nil {
				return err
			}
			if userID == "" {
				userID = app.Config.UserID
			}

			res, err := app.Walker.Resolve(ctx, userID, kind, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if res.Empty {
				if !create || res.MissingKind != kind {
					fmt.Fprintf(out, "%s\nNo %s yet.", formatter.FormatPath(res.Path), res.MissingKind)
					if res.MissingKind == kind {
						fmt.Fprint(out, " Pass --create to add one.")
					}
					fmt.Fprintln(out)
					return nil
				}
				if err := checkFields(kind, fields); err != nil {
					return err
				}
				parent := res.Path[len(res.Path)-1]
				now := app.now()
				created, err := app.Server.PushSubtree(ctx, kind, &domain.Snapshot{
					ClientID:     domain.NewClientID(),
					ParentID:     parent.ID,
					Kind:         kind,
					Fields:       domain.FilterFields(kind, fields),
					CreatedAt:    now,
					LastModified: now,
					Disposition:  domain.DispositionNew,
				})
				if err != nil {
					return fmt.Errorf("creating %s: %w", kind, err)
				}
				res.Snapshot = created
				res.Path = append(res.Path, service.Level{
					Kind: kind, ID: created.ID, Title: created.Fields[domain.DisplayField(kind)],
				})
			}

			st, err := app.Stores.Open(ctx, kind)
			if err != nil {
				return err
			}
			if cur := st.Snapshot(); cur != nil && cur.ID != res.Snapshot.ID && st.Dirty() && !discard {
				return fmt.Errorf("the %s store holds unsynced edits to %s; run `resumedit sync` or pass --discard",
					kind, formatter.ShortID(cur.ClientID))
			}

			stats := st.Hydrate(ctx, res.Snapshot)
			app.logger().Debug("opened store",
				zap.String("store", st.Name()),
				zap.String("root", res.Snapshot.ID),
				zap.Int("inserted", stats.Inserted),
				zap.Int("kept", stats.Kept))

			fmt.Fprintln(out, formatter.FormatPath(res.Path))
			fmt.Fprint(out, formatter.FormatTree(st.Tree(), false))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (defaults to user_id from the config)")
	cmd.Flags().StringVar(&id, "id", "", "Server id of the node to open")
	cmd.Flags().BoolVar(&create, "create", false, "Create the node when the level is empty")
	cmd.Flags().BoolVar(&discard, "discard", false, "Drop unsynced edits to another root")
	addFieldsFlag(cmd.Flags(), &fields)
	return cmd
}
