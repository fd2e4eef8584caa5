package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/thomhug/resumedit/internal/config"
	"github.com/thomhug/resumedit/internal/service"
	"github.com/thomhug/resumedit/internal/store"
	"github.com/thomhug/resumedit/internal/syncer"
	"go.uber.org/zap"
)

// App holds everything the commands need. It is built once in main.
type App struct {
	Server service.ServerOfRecord
	Stores *store.Registry
	Walker *service.Bootstrapper
	Config config.Config
	Logger *zap.Logger

	// Clock drives the watch loop; nil means the wall clock.
	Clock syncer.Clock
	Now   func() time.Time
	// Plain is set when stdout is not a terminal.
	Plain bool
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// NewRootCmd creates the top-level "resumedit" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "resumedit",
		Short:         "Edit a resume tree locally and keep it in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("kind", app.Config.RootKind,
		"Root kind of the store to work on (resume|organization|role)")

	root.AddCommand(
		newUserCmd(app),
		newOpenCmd(app),
		newImportCmd(app),
		newShowCmd(app),
		newAddCmd(app),
		newSetCmd(app),
		newRmCmd(app),
		newMoveCmd(app),
		newRebalanceCmd(app),
		newDraftCmd(app),
		newSyncCmd(app),
		newWatchCmd(app),
	)

	return root
}
