package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/thomhug/resumedit/internal/domain"
)

// Notice reports that the server copy was newer than the local one when a
// cycle started. It is informational only.
type Notice struct {
	Kind        domain.Kind
	RootID      string
	Local       time.Time
	Server      time.Time
	LocalCount  int
	ServerCount int
}

const noticeTimeLayout = "2006-01-02 15:04:05"

func (n Notice) Title() string { return "Synchronized" }

func (n Notice) String() string {
	return fmt.Sprintf("%s %s: local %s (%d items), server %s (%d items)",
		n.Kind, n.RootID,
		n.Local.Local().Format(noticeTimeLayout), n.LocalCount,
		n.Server.Local().Format(noticeTimeLayout), n.ServerCount)
}

// Notifier receives sync notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notice) {}
