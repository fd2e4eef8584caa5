package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/thomhug/resumedit/internal/db"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/repository"
)

type serverOfRecord struct {
	nodes    repository.NodeRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
	now      func() time.Time
}

// NewServerOfRecord builds the SQLite-backed server. Reads go through nodes;
// pushes run in one transaction on uow.
func NewServerOfRecord(nodes repository.NodeRepo, uow db.UnitOfWork, observers ...UseCaseObserver) ServerOfRecord {
	return &serverOfRecord{
		nodes:    nodes,
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func newServerID() string {
	return ulid.Make().String()
}

func (s *serverOfRecord) FetchSubtree(ctx context.Context, kind domain.Kind, id string) (snap *domain.Snapshot, err error) {
	fields := map[string]any{"kind": string(kind), "id": id}
	done := track(ctx, s.observer, "fetch-subtree", fields)
	defer func() { done(err) }()

	snap, err = loadSubtree(ctx, s.nodes, kind, id)
	if err != nil {
		return nil, err
	}
	fields["node_count"] = snap.Count()
	return snap, nil
}

func (s *serverOfRecord) FetchChildrenByParent(ctx context.Context, kind domain.Kind, parentID string) (children []*domain.Snapshot, err error) {
	fields := map[string]any{"kind": string(kind), "parent_id": parentID}
	done := track(ctx, s.observer, "fetch-children", fields)
	defer func() { done(err) }()

	parentKind, ok := domain.ParentKind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no parent kind", ErrKindMismatch, kind)
	}
	if _, err = liveNode(ctx, s.nodes, parentKind, parentID); err != nil {
		return nil, err
	}
	children, err = s.nodes.ListChildren(ctx, parentID, false)
	if err != nil {
		return nil, err
	}
	fields["child_count"] = len(children)
	return children, nil
}

func (s *serverOfRecord) FetchLastModified(ctx context.Context, kind domain.Kind, id string) (latest time.Time, err error) {
	done := track(ctx, s.observer, "fetch-last-modified", map[string]any{"kind": string(kind), "id": id})
	defer func() { done(err) }()

	if _, err = liveNode(ctx, s.nodes, kind, id); err != nil {
		return time.Time{}, err
	}
	return s.nodes.MaxLastModified(ctx, id)
}

// pushStats counts the writes of one push.
type pushStats struct {
	created int
	updated int
	deleted int
	skipped int
}

func (s *serverOfRecord) PushSubtree(ctx context.Context, kind domain.Kind, snap *domain.Snapshot) (out *domain.Snapshot, err error) {
	fields := map[string]any{"kind": string(kind)}
	done := track(ctx, s.observer, "push-subtree", fields)
	defer func() { done(err) }()

	if snap == nil {
		return nil, fmt.Errorf("%w: empty push", ErrInvalidSnapshot)
	}
	if snap.Kind != kind {
		return nil, fmt.Errorf("%w: pushed %s as %s", ErrKindMismatch, snap.Kind, kind)
	}
	if snap.DeletedAt != nil {
		return nil, fmt.Errorf("%w: cannot push a deleted root", ErrInvalidSnapshot)
	}
	fields["client_id"] = snap.ClientID
	fields["node_count"] = snap.Count()

	var stats pushStats
	now := s.now()
	out, err = db.InTx(ctx, s.uow, func(ctx context.Context, tx db.DBTX) (*domain.Snapshot, error) {
		nodes := repository.NewSQLiteNodeRepo(tx)

		parentID, err := s.resolveRootParent(ctx, nodes, snap)
		if err != nil {
			return nil, err
		}
		rootID, err := upsert(ctx, nodes, snap, parentID, now, &stats)
		if err != nil {
			return nil, err
		}
		if rootID == "" {
			return nil, fmt.Errorf("pushed root %s: %w", snap.ClientID, repository.ErrNotFound)
		}
		return loadSubtree(ctx, nodes, kind, rootID)
	})
	fields["created"] = stats.created
	fields["updated"] = stats.updated
	fields["deleted"] = stats.deleted
	fields["skipped"] = stats.skipped
	if err != nil {
		return nil, err
	}
	return out, nil
}

// resolveRootParent finds the parent the pushed root hangs under. Known
// roots keep their stored parent; new ones must name a live parent of the
// right kind, or be users.
func (s *serverOfRecord) resolveRootParent(ctx context.Context, nodes repository.NodeRepo, snap *domain.Snapshot) (string, error) {
	existing, err := findNode(ctx, nodes, snap)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ParentID, nil
	}
	parentKind, hasParent := domain.ParentKind(snap.Kind)
	if !hasParent {
		return "", nil
	}
	if snap.ParentID == "" {
		return "", fmt.Errorf("%w: new %s without parent", ErrInvalidSnapshot, snap.Kind)
	}
	if _, err := liveNode(ctx, nodes, parentKind, snap.ParentID); err != nil {
		return "", err
	}
	return snap.ParentID, nil
}

// upsert writes snap and its descendants and returns the stored id, or ""
// when the node does not (or no longer) exist server-side.
func upsert(ctx context.Context, nodes repository.NodeRepo, snap *domain.Snapshot, parentID string, now time.Time, stats *pushStats) (string, error) {
	existing, err := findNode(ctx, nodes, snap)
	if err != nil {
		return "", err
	}

	if snap.DeletedAt != nil {
		if existing != nil && existing.DeletedAt == nil {
			if err := nodes.MarkDeleted(ctx, existing.ID, *snap.DeletedAt); err != nil {
				return "", err
			}
			stats.deleted++
		}
		return "", nil
	}

	var id string
	switch {
	case existing != nil && existing.DeletedAt != nil:
		// Deleted elsewhere; the subtree went with it.
		stats.skipped += snap.Count()
		return "", nil
	case existing != nil:
		if existing.ParentID != parentID {
			return "", fmt.Errorf("%w: %s %s moved to another parent", ErrInvalidSnapshot, snap.Kind, existing.ID)
		}
		id = existing.ID
		if pending(snap) {
			existing.Fields = domain.FilterFields(existing.Kind, snap.Fields)
			existing.OrderValue = snap.OrderValue
			existing.LastModified = latest(existing.LastModified, snap.LastModified)
			if err := nodes.Update(ctx, existing); err != nil {
				return "", err
			}
			stats.updated++
		}
	case snap.Disposition == domain.DispositionSynced:
		// The client believes it is stored but it is not: do not resurrect.
		stats.skipped += snap.Count()
		return "", nil
	default:
		created := &domain.Snapshot{
			ID:           newServerID(),
			ClientID:     snap.ClientID,
			ParentID:     parentID,
			Kind:         snap.Kind,
			Fields:       domain.FilterFields(snap.Kind, snap.Fields),
			OrderValue:   snap.OrderValue,
			CreatedAt:    orNow(snap.CreatedAt, now),
			LastModified: orNow(snap.LastModified, now),
		}
		if created.ClientID == "" {
			created.ClientID = domain.NewClientID()
		}
		if err := nodes.Create(ctx, created); err != nil {
			return "", err
		}
		id = created.ID
		stats.created++
	}

	childKind, hasChildren := domain.ChildKind(snap.Kind)
	for _, c := range snap.Children {
		if !hasChildren || c.Kind != childKind {
			return "", fmt.Errorf("%w: %s under %s", ErrInvalidSnapshot, c.Kind, snap.Kind)
		}
		if _, err := upsert(ctx, nodes, c, id, now, stats); err != nil {
			return "", err
		}
	}
	return id, nil
}

// findNode looks a pushed node up by server id, then by client id.
func findNode(ctx context.Context, nodes repository.NodeRepo, snap *domain.Snapshot) (*domain.Snapshot, error) {
	if snap.ID != "" {
		n, err := nodes.GetByID(ctx, snap.ID)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	if snap.ClientID == "" {
		return nil, nil
	}
	n, err := nodes.GetByClientID(ctx, snap.ClientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if n.Kind != snap.Kind {
		return nil, fmt.Errorf("%w: client id %s is a %s", ErrKindMismatch, snap.ClientID, n.Kind)
	}
	return n, nil
}

// liveNode loads a node that must exist, be live and have the given kind.
func liveNode(ctx context.Context, nodes repository.NodeRepo, kind domain.Kind, id string) (*domain.Snapshot, error) {
	n, err := nodes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, err)
	}
	if n.DeletedAt != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
	}
	if n.Kind != kind {
		return nil, fmt.Errorf("%w: %s is a %s, not a %s", ErrKindMismatch, id, n.Kind, kind)
	}
	return n, nil
}

// loadSubtree assembles the canonical view of the subtree at id.
func loadSubtree(ctx context.Context, nodes repository.NodeRepo, kind domain.Kind, id string) (*domain.Snapshot, error) {
	root, err := liveNode(ctx, nodes, kind, id)
	if err != nil {
		return nil, err
	}
	if err := loadChildren(ctx, nodes, root); err != nil {
		return nil, err
	}
	return root, nil
}

func loadChildren(ctx context.Context, nodes repository.NodeRepo, n *domain.Snapshot) error {
	if n.Kind.IsLeaf() {
		return nil
	}
	children, err := nodes.ListChildren(ctx, n.ID, false)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := loadChildren(ctx, nodes, c); err != nil {
			return err
		}
	}
	n.Children = children
	return nil
}

func (s *serverOfRecord) CreateUser(ctx context.Context, fields map[string]string) (*domain.Snapshot, error) {
	now := s.now()
	user := &domain.Snapshot{
		ClientID:     domain.NewClientID(),
		Kind:         domain.KindUser,
		Fields:       domain.FilterFields(domain.KindUser, fields),
		CreatedAt:    now,
		LastModified: now,
		Disposition:  domain.DispositionNew,
	}
	return s.PushSubtree(ctx, domain.KindUser, user)
}

func (s *serverOfRecord) ListUsers(ctx context.Context) (users []*domain.Snapshot, err error) {
	done := track(ctx, s.observer, "list-users", nil)
	defer func() { done(err) }()
	return s.nodes.ListRoots(ctx, domain.KindUser)
}

func pending(s *domain.Snapshot) bool {
	return s.Disposition != domain.DispositionSynced
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
