package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/repository"
	"github.com/thomhug/resumedit/internal/service"
	"github.com/thomhug/resumedit/internal/store"
	"github.com/thomhug/resumedit/internal/testutil"
)

type fakeTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type fakeClock struct {
	now     time.Time
	tickers chan *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:     time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		tickers: make(chan *fakeTicker, 1),
	}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	t := &fakeTicker{c: make(chan time.Time)}
	c.tickers <- t
	return t
}

// scriptedServer wraps a real server, counting calls and optionally
// failing or blocking pushes.
type scriptedServer struct {
	service.Server

	mu       sync.Mutex
	pushes   int
	pushErrs []error
	entered  chan struct{}
	release  chan struct{}
	cycles   chan struct{}
}

func (s *scriptedServer) PushSubtree(ctx context.Context, kind domain.Kind, snap *domain.Snapshot) (*domain.Snapshot, error) {
	s.mu.Lock()
	s.pushes++
	var err error
	if len(s.pushErrs) > 0 {
		err, s.pushErrs = s.pushErrs[0], s.pushErrs[1:]
	}
	s.mu.Unlock()

	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	if err != nil {
		if s.cycles != nil {
			s.cycles <- struct{}{}
		}
		return nil, err
	}
	return s.Server.PushSubtree(ctx, kind, snap)
}

func (s *scriptedServer) FetchLastModified(ctx context.Context, kind domain.Kind, id string) (time.Time, error) {
	t, err := s.Server.FetchLastModified(ctx, kind, id)
	if s.cycles != nil {
		s.cycles <- struct{}{}
	}
	return t, err
}

func (s *scriptedServer) pushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes
}

type fixture struct {
	srv    service.ServerOfRecord
	store  *store.Store
	resume *domain.Snapshot
}

// newFixture stores user -> resume -> organization on the server and
// hydrates a resume store from it.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	srv := service.NewServerOfRecord(repository.NewSQLiteNodeRepo(database), testutil.NewTestUoW(database))

	user, err := srv.CreateUser(ctx, map[string]string{"name": "Ada"})
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Hour)
	resume, err := srv.PushSubtree(ctx, domain.KindResume, testutil.NewLocalNode(domain.KindResume, "Main",
		testutil.WithParentID(user.ID),
		testutil.WithLastModified(past),
		testutil.WithChildren(testutil.NewLocalNode(domain.KindOrganization, "Acme",
			testutil.WithOrderValue(1024), testutil.WithLastModified(past))),
	))
	require.NoError(t, err)

	st, err := store.Open(ctx, repository.NewSQLiteLocalStateRepo(database), domain.KindResume, store.Options{})
	require.NoError(t, err)
	st.Hydrate(ctx, resume)
	return fixture{srv: srv, store: st, resume: resume}
}

func TestSyncNow_PushesLocalEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.store.Root().Children(false)[0].ClientID

	role, err := f.store.Node(orgID).AddChild(ctx, map[string]string{"title": "Engineer"})
	require.NoError(t, err)
	require.True(t, f.store.Dirty())

	res, err := New(f.store, f.srv, Config{}).SyncNow(ctx)
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.Stats.Confirmed)
	assert.Nil(t, res.Notice, "the server is not newer than the edit")
	assert.False(t, f.store.Dirty())

	n, ok := role.Get()
	require.True(t, ok)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, domain.DispositionSynced, n.Disposition)
}

func TestSyncNow_PullsRemoteChangesAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	remote, err := f.srv.FetchSubtree(ctx, domain.KindResume, f.resume.ID)
	require.NoError(t, err)
	remote.Fields["name"] = "Renamed elsewhere"
	remote.LastModified = time.Now().UTC().Add(time.Hour)
	remote.Disposition = domain.DispositionModified
	_, err = f.srv.PushSubtree(ctx, domain.KindResume, remote)
	require.NoError(t, err)

	var notices []Notice
	sched := New(f.store, f.srv, Config{Notifier: NotifierFunc(func(_ context.Context, n Notice) {
		notices = append(notices, n)
	})})
	res, err := sched.SyncNow(ctx)
	require.NoError(t, err)

	assert.False(t, res.Pushed, "nothing dirty, so it only fetches")
	root, _ := f.store.Root().Get()
	assert.Equal(t, "Renamed elsewhere", root.Title())
	require.NotNil(t, res.Notice)
	require.Len(t, notices, 1)
	assert.Equal(t, 2, notices[0].ServerCount)
	assert.Equal(t, f.resume.ID, notices[0].RootID)
	assert.True(t, notices[0].Server.After(notices[0].Local))
	assert.Contains(t, notices[0].String(), "(2 items)")
	assert.Equal(t, "Synchronized", notices[0].Title())
}

func TestSyncNow_EmptyStore(t *testing.T) {
	database := testutil.NewTestDB(t)
	st, err := store.Open(context.Background(), repository.NewSQLiteLocalStateRepo(database), domain.KindResume, store.Options{})
	require.NoError(t, err)
	srv := service.NewServerOfRecord(repository.NewSQLiteNodeRepo(database), testutil.NewTestUoW(database))

	_, err = New(st, srv, Config{}).SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrEmptyStore)
}

func TestSyncNow_FailureLeavesEditsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetFields(ctx, f.store.RootID(), map[string]string{"description": "draft"}))

	boom := errors.New("network down")
	srv := &scriptedServer{Server: f.srv, pushErrs: []error{boom}}
	_, err := New(f.store, srv, Config{}).SyncNow(ctx)
	require.ErrorIs(t, err, boom)
	assert.True(t, f.store.Dirty())

	_, err = New(f.store, srv, Config{}).SyncNow(ctx)
	require.NoError(t, err)
	assert.False(t, f.store.Dirty())
}

func TestSyncNow_OverlappingCallsShareOneCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetFields(ctx, f.store.RootID(), map[string]string{"description": "x"}))

	srv := &scriptedServer{Server: f.srv, entered: make(chan struct{}), release: make(chan struct{})}
	sched := New(f.store, srv, Config{})

	results := make(chan Result, 2)
	run := func() {
		res, err := sched.SyncNow(ctx)
		if err != nil {
			t.Errorf("sync: %v", err)
		}
		results <- res
	}
	go run()
	<-srv.entered
	go run()
	time.Sleep(50 * time.Millisecond)
	close(srv.release)

	a, b := <-results, <-results
	assert.Equal(t, 1, srv.pushCount())
	assert.Equal(t, a.Seq, b.Seq)
	assert.True(t, a.Shared || b.Shared)
}

func TestRun_SyncsOnTickAndStops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clk := newFakeClock()
	srv := &scriptedServer{
		Server:   f.srv,
		pushErrs: []error{errors.New("flaky")},
		cycles:   make(chan struct{}, 4),
	}
	sched := New(f.store, srv, Config{Interval: time.Second, Clock: clk})

	require.NoError(t, f.store.SetFields(ctx, f.store.RootID(), map[string]string{"description": "tick"}))
	sched.Start(ctx)
	sched.Start(ctx)
	ticker := <-clk.tickers

	ticker.c <- clk.now
	<-srv.cycles
	assert.True(t, f.store.Dirty(), "first attempt failed, edit still pending")

	ticker.c <- clk.now
	<-srv.cycles
	sched.Stop()

	assert.False(t, f.store.Dirty(), "the next tick is the retry")
	assert.Equal(t, 2, srv.pushCount())
	assert.True(t, ticker.stopped.Load())

	sched.Stop()
}

func TestRun_ZeroIntervalDisables(t *testing.T) {
	f := newFixture(t)
	clk := newFakeClock()
	sched := New(f.store, f.srv, Config{Interval: 0, Clock: clk})

	done := make(chan struct{})
	go func() {
		sched.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return at once when disabled")
	}
	assert.Empty(t, clk.tickers)
}
