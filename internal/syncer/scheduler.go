// Package syncer runs the push/pull cycle between a store and the server.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/reconcile"
	"github.com/thomhug/resumedit/internal/service"
	"github.com/thomhug/resumedit/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyStore is returned when there is no tree to synchronise yet.
var ErrEmptyStore = errors.New("store is empty")

// Result describes one sync cycle.
type Result struct {
	Seq            uint64
	Pushed         bool
	Applied        bool // false when a newer cycle had already been applied
	Shared         bool // the caller joined a cycle already in flight
	Stats          reconcile.Stats
	ServerModified time.Time
	Notice         *Notice
}

type Config struct {
	// Interval between cycles in Run; zero or less disables the loop.
	Interval time.Duration
	Clock    Clock
	Notifier Notifier
	Logger   *zap.Logger
}

type Scheduler struct {
	store    *store.Store
	server   service.Server
	interval time.Duration
	clock    Clock
	notifier Notifier
	logger   *zap.Logger
	group    singleflight.Group

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(st *store.Store, server service.Server, cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = noopNotifier{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Scheduler{
		store:    st,
		server:   server,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		notifier: cfg.Notifier,
		logger:   cfg.Logger.With(zap.String("store", st.Name())),
	}
}

// SyncNow runs one cycle. Calls that overlap a running cycle wait for it
// and share its result.
func (s *Scheduler) SyncNow(ctx context.Context) (Result, error) {
	v, err, shared := s.group.Do(s.store.Name(), func() (any, error) {
		return s.cycle(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	res.Shared = shared
	return res, nil
}

func (s *Scheduler) cycle(ctx context.Context) (Result, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return Result{}, ErrEmptyStore
	}
	started := s.clock.Now()
	res := Result{Seq: s.store.BeginSync()}
	localModified := snap.MaxLastModified()
	localCount := snap.Count()

	var server *domain.Snapshot
	var err error
	if s.store.Dirty() {
		res.Pushed = true
		server, err = s.server.PushSubtree(ctx, snap.Kind, snap)
		if err != nil {
			return Result{}, fmt.Errorf("pushing %s: %w", snap.Kind, err)
		}
	} else {
		server, err = s.server.FetchSubtree(ctx, snap.Kind, snap.ID)
		if err != nil {
			return Result{}, fmt.Errorf("fetching %s %s: %w", snap.Kind, snap.ID, err)
		}
	}

	res.Stats, res.Applied = s.store.HydrateSeq(ctx, res.Seq, server)

	res.ServerModified, err = s.server.FetchLastModified(ctx, server.Kind, server.ID)
	if err != nil {
		return Result{}, fmt.Errorf("fetching last modified: %w", err)
	}
	if res.ServerModified.After(localModified) {
		n := Notice{
			Kind:        server.Kind,
			RootID:      server.ID,
			Local:       localModified,
			Server:      res.ServerModified,
			LocalCount:  localCount,
			ServerCount: server.Count(),
		}
		res.Notice = &n
		s.notifier.Notify(ctx, n)
	}

	s.logger.Debug("sync cycle done",
		zap.Uint64("seq", res.Seq),
		zap.Bool("pushed", res.Pushed),
		zap.Bool("applied", res.Applied),
		zap.Time("server_modified", res.ServerModified),
		zap.Duration("took", s.clock.Now().Sub(started)))
	return res, nil
}

// Run syncs on every tick until ctx is done. Failures are logged and the
// next tick is the retry.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("periodic sync disabled")
		return
	}
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if _, err := s.SyncNow(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("sync failed", zap.Error(err))
			}
		}
	}
}

// Start runs the loop in the background. Starting twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop ends the loop started by Start and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
