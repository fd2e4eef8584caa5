package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/thomhug/resumedit/internal/cli/formatter"
	"github.com/thomhug/resumedit/internal/store"
	"github.com/thomhug/resumedit/internal/syncer"
	"github.com/thomhug/resumedit/internal/tree"
)

// noticePrinter writes sync notices to the command output. Notices can
// arrive from the watch loop while the tree is being printed.
type noticePrinter struct {
	mu    *sync.Mutex
	out   io.Writer
	plain bool
}

func (p noticePrinter) Notify(_ context.Context, n syncer.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, formatter.FormatNotice(n, p.plain))
}

func (app *App) scheduler(st *store.Store, interval time.Duration, out io.Writer, mu *sync.Mutex) *syncer.Scheduler {
	return syncer.New(st, app.Server, syncer.Config{
		Interval: interval,
		Clock:    app.Clock,
		Notifier: noticePrinter{mu: mu, out: out, plain: app.Plain},
		Logger:   app.logger(),
	})
}

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local edits and pull the server copy once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := loadedStore(ctx, cmd, app)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			res, err := app.scheduler(st, 0, out, &sync.Mutex{}).SyncNow(ctx)
			if err != nil {
				return fmt.Errorf("sync failed, edits stay pending: %w", err)
			}
			fmt.Fprintln(out, formatter.FormatSyncResult(res))
			return nil
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	var seconds int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync periodically until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadedStore(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				seconds = app.Config.SyncIntervalSeconds
			}
			if seconds <= 0 {
				return errors.New("periodic sync is disabled (sync_interval_seconds is 0)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			sched := app.scheduler(st, time.Duration(seconds)*time.Second, out, &mu)

			unsubscribe := st.Subscribe(func(t *tree.Tree) {
				mu.Lock()
				defer mu.Unlock()
				if app.Plain {
					fmt.Fprintf(out, "%s updated: %d nodes\n", st.Kind(), t.Len())
					return
				}
				fmt.Fprint(out, "\n"+formatter.FormatTree(t, false))
			})
			defer unsubscribe()

			fmt.Fprintf(out, "Syncing %s every %ds, Ctrl-C to stop\n", st.Kind(), seconds)
			sched.Start(ctx)
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().IntVar(&seconds, "interval", 0, "Seconds between syncs (defaults to sync_interval_seconds)")
	return cmd
}
