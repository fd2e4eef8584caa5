package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thomhug/resumedit/internal/cli/formatter"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/importer"
)

func newImportCmd(app *App) *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Create a subtree on the server from a YAML or JSON file",
		Long: `Create a subtree on the server from a YAML or JSON file and load it
into the local store of its kind. A resume is created under the configured
user; other kinds need --parent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := importer.LoadImportFile(args[0])
			if err != nil {
				return err
			}
			if errs := importer.ValidateImport(root); len(errs) > 0 {
				return fmt.Errorf("invalid import file %s:\n%w", args[0], errors.Join(errs...))
			}

			kind, _ := domain.ParseKind(root.Kind)
			if parentID == "" && kind == domain.KindResume {
				parentID = app.Config.UserID
			}
			if parentID == "" {
				return fmt.Errorf("importing a %s needs --parent", kind)
			}

			created, err := app.Server.PushSubtree(ctx, kind, importer.Convert(root, parentID, app.now()))
			if err != nil {
				return fmt.Errorf("importing %s: %w", kind, err)
			}
			st, err := app.Stores.Open(ctx, kind)
			if err != nil {
				return err
			}
			if st.Dirty() {
				return fmt.Errorf("imported %s %s, but the local %s store has unsynced edits; open it with `resumedit open --id %s --discard`",
					kind, created.ID, kind, created.ID)
			}
			st.Hydrate(ctx, created)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %s %s (%d items)\n", kind,
				formatter.Bold(created.Fields[domain.DisplayField(kind)]), created.Count())
			fmt.Fprint(out, formatter.FormatTree(st.Tree(), false))
			return nil
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "Server id of the parent node")
	return cmd
}
