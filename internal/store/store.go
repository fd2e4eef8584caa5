// Package store keeps the live client tree of one hierarchy level. Every
// mutation runs a pure tree reducer under the store's lock, publishes the
// result and writes it through to local persistence.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/reconcile"
	"github.com/thomhug/resumedit/internal/repository"
	"github.com/thomhug/resumedit/internal/tree"
	"go.uber.org/zap"
)

// SchemaVersion is bumped whenever the persisted tree layout changes.
// Entries written under another version are discarded on open.
const SchemaVersion = 1

const nameSuffix = "-nested-item.resumedit.local"

// Name is the persistence key of the store rooted at kind.
func Name(kind domain.Kind) string {
	return string(kind) + nameSuffix
}

// Options configures a Store.
type Options struct {
	Env    tree.Env
	Logger *zap.Logger
	// LogMerge logs every server update at info level instead of debug.
	LogMerge bool
}

func (o Options) withDefaults() Options {
	if o.Env.Now == nil || o.Env.NewID == nil {
		def := tree.DefaultEnv()
		if o.Env.Now == nil {
			o.Env.Now = def.Now
		}
		if o.Env.NewID == nil {
			o.Env.NewID = def.NewID
		}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Observer is called with every newly published tree.
type Observer func(t *tree.Tree)

type Store struct {
	name     string
	kind     domain.Kind
	env      tree.Env
	logger   *zap.Logger
	logMerge bool
	repo     repository.LocalStateRepo

	mu          sync.Mutex
	t           *tree.Tree
	appliedSeq  uint64
	observers   map[int]Observer
	nextObserve int

	syncSeq atomic.Uint64
}

// Open loads the persisted tree for kind. A missing entry, an entry from
// another schema version or one rooted at a different kind yields an empty
// store.
func Open(ctx context.Context, repo repository.LocalStateRepo, kind domain.Kind, opts Options) (*Store, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	opts = opts.withDefaults()
	s := &Store{
		name:      Name(kind),
		kind:      kind,
		env:       opts.Env,
		logger:    opts.Logger.With(zap.String("store", Name(kind))),
		logMerge:  opts.LogMerge,
		repo:      repo,
		observers: make(map[int]Observer),
	}

	state, err := repo.Get(ctx, s.name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Debug("no persisted state")
		return s, nil
	case err != nil:
		return nil, err
	}

	if state.SchemaVersion != SchemaVersion || (state.Tree != nil && state.Tree.Kind != kind) {
		s.logger.Info("discarding persisted state",
			zap.Int("schema_version", state.SchemaVersion),
			zap.Int("want_version", SchemaVersion))
		if err := repo.Delete(ctx, s.name); err != nil {
			return nil, err
		}
		return s, nil
	}
	if state.Tree != nil {
		s.t = tree.FromSnapshot(state.Tree)
		if err := s.t.Validate(); err != nil {
			s.logger.Warn("persisted tree is inconsistent, starting empty", zap.Error(err))
			s.t = nil
		}
	}
	return s, nil
}

func (s *Store) Name() string      { return s.name }
func (s *Store) Kind() domain.Kind { return s.kind }

// Tree returns the current tree. It is immutable and safe to read while
// the store keeps changing.
func (s *Store) Tree() *tree.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

// RootID is the client id of the root, or "" for an empty store.
func (s *Store) RootID() string {
	if r := s.Tree().Root(); r != nil {
		return r.ClientID
	}
	return ""
}

func (s *Store) Empty() bool {
	return s.Tree().Root() == nil
}

// Dirty reports whether anything in the store awaits a push.
func (s *Store) Dirty() bool {
	t := s.Tree()
	if t == nil {
		return false
	}
	return t.Dirty(t.RootClientID)
}

// Snapshot serialises the whole tree, or nil for an empty store.
func (s *Store) Snapshot() *domain.Snapshot {
	t := s.Tree()
	if t == nil {
		return nil
	}
	return t.Snapshot(t.RootClientID)
}

// Subscribe registers fn for every published tree and returns the func
// that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObserve
	s.nextObserve++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Node returns a handle scoped to one node of the store.
func (s *Store) Node(clientID string) *Handle {
	return &Handle{s: s, id: clientID}
}

// Root returns a handle on the root node.
func (s *Store) Root() *Handle {
	return s.Node(s.RootID())
}

func (s *Store) SetFields(ctx context.Context, clientID string, data map[string]string) error {
	return s.mutate(ctx, func(t *tree.Tree) (*tree.Tree, error) {
		return tree.SetFields(t, s.env, clientID, data)
	})
}

func (s *Store) SetChildFields(ctx context.Context, parentID, childID string, data map[string]string) error {
	return s.mutate(ctx, func(t *tree.Tree) (*tree.Tree, error) {
		return tree.SetChildFields(t, s.env, parentID, childID, data)
	})
}

func (s *Store) AddChild(ctx context.Context, parentID string, data map[string]string) (string, error) {
	return s.AddChildAt(ctx, parentID, data, -1)
}

func (s *Store) AddChildAt(ctx context.Context, parentID string, data map[string]string, index int) (string, error) {
	var childID string
	err := s.mutate(ctx, func(t *tree.Tree) (*tree.Tree, error) {
		out, id, err := tree.AddChildAt(t, s.env, parentID, data, index)
		childID = id
		return out, err
	})
	return childID, err
}

func (s *Store) MarkChildDeleted(ctx context.Context, parentID, childID string) error {
	return s.mutate(ctx, func(t *tree.Tree) (*tree.Tree, error) {
		return tree.MarkChildDeleted(t, s.env, parentID, childID)
	})
}

func (s *Store) ReArrangeChildren(ctx context.Context, parentID string, newOrder []string) error {
	return s.mutate(ctx, func(t *tree.Tree) (*tree.Tree, error) {
		return tree.ReArrangeChildren(t, s.env, parentID, newOrder)
	})
}

func (s *Store) ResetChildrenOrderValues(ctx context.Context, parentID string) error {
	return s.mutate(ctx, func(t *tree.Tree) (*tree.Tree, error) {
		return tree.ResetChildrenOrderValues(t, s.env, parentID)
	})
}

func (s *Store) UpdateChildDraft(ctx context.Context, parentID string, data map[string]string) error {
	return s.mutate(ctx, func(t *tree.Tree) (*tree.Tree, error) {
		return tree.UpdateChildDraft(t, s.env, parentID, data)
	})
}

func (s *Store) CommitChildDraft(ctx context.Context, parentID string) (string, error) {
	var childID string
	err := s.mutate(ctx, func(t *tree.Tree) (*tree.Tree, error) {
		out, id, err := tree.CommitChildDraft(t, s.env, parentID)
		childID = id
		return out, err
	})
	return childID, err
}

// mutate applies fn to the current tree and publishes the result. A
// reducer returning its input unchanged publishes nothing.
func (s *Store) mutate(ctx context.Context, fn func(*tree.Tree) (*tree.Tree, error)) error {
	s.mu.Lock()
	next, err := fn(s.t)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if next == s.t {
		s.mu.Unlock()
		return nil
	}
	s.t = next
	s.persistLocked(ctx)
	observers := s.observersLocked()
	s.mu.Unlock()

	notify(observers, next)
	return nil
}

// BeginSync hands out the sequence number of a new sync cycle.
func (s *Store) BeginSync() uint64 {
	return s.syncSeq.Add(1)
}

// Hydrate merges a server snapshot into the store unconditionally.
func (s *Store) Hydrate(ctx context.Context, snap *domain.Snapshot) reconcile.Stats {
	s.mu.Lock()
	stats := s.hydrateLocked(ctx, snap)
	observers := s.observersLocked()
	t := s.t
	s.mu.Unlock()

	notify(observers, t)
	return stats
}

// HydrateSeq merges the result of sync cycle seq. Results of cycles older
// than the last applied one are ignored and reported with ok false.
func (s *Store) HydrateSeq(ctx context.Context, seq uint64, snap *domain.Snapshot) (stats reconcile.Stats, ok bool) {
	s.mu.Lock()
	if seq <= s.appliedSeq {
		applied := s.appliedSeq
		s.mu.Unlock()
		s.logger.Debug("ignoring stale server update",
			zap.Uint64("seq", seq), zap.Uint64("applied_seq", applied))
		return reconcile.Stats{}, false
	}
	s.appliedSeq = seq
	stats = s.hydrateLocked(ctx, snap)
	observers := s.observersLocked()
	t := s.t
	s.mu.Unlock()

	notify(observers, t)
	return stats, true
}

func (s *Store) hydrateLocked(ctx context.Context, snap *domain.Snapshot) reconcile.Stats {
	if snap == nil {
		return reconcile.Stats{}
	}
	before := s.t.Len()
	next, stats := reconcile.Merge(s.t, snap, s.env)
	s.t = next

	log := s.logger.Debug
	if s.logMerge {
		log = s.logger.Info
	}
	log("update from server",
		zap.Int("nodes_before", before),
		zap.Int("nodes_after", next.Len()),
		zap.Int("server_nodes", snap.Count()),
		zap.Int("adopted", stats.Adopted),
		zap.Int("confirmed", stats.Confirmed),
		zap.Int("kept", stats.Kept),
		zap.Int("pending", stats.Pending),
		zap.Int("inserted", stats.Inserted),
		zap.Int("dropped", stats.Dropped))

	s.persistLocked(ctx)
	if err := s.repo.MarkSynced(ctx, s.name, s.env.Now()); err != nil {
		s.logger.Warn("recording sync time failed", zap.Error(err))
	}
	return stats
}

// persistLocked writes the current tree through. Failures are logged and
// never undo the in-memory change.
func (s *Store) persistLocked(ctx context.Context) {
	state := &domain.LocalState{
		StoreName:     s.name,
		SchemaVersion: SchemaVersion,
		UpdatedAt:     s.env.Now(),
	}
	if root := s.t.Root(); root != nil {
		state.RootClientID = root.ClientID
		state.Tree = s.t.Snapshot(root.ClientID)
	}
	if err := s.repo.Save(ctx, state); err != nil {
		s.logger.Warn("persisting local state failed", zap.Error(err))
	}
}

func (s *Store) observersLocked() []Observer {
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Observer, len(ids))
	for i, id := range ids {
		out[i] = s.observers[id]
	}
	return out
}

func notify(observers []Observer, t *tree.Tree) {
	for _, fn := range observers {
		fn(t)
	}
}

// LastSynced returns when the store last took a server update, if ever.
func (s *Store) LastSynced(ctx context.Context) (*time.Time, error) {
	state, err := s.repo.Get(ctx, s.name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state.LastSyncedAt, nil
}
