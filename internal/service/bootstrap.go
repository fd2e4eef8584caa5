package service

import (
	"context"
	"fmt"

	"github.com/thomhug/resumedit/internal/domain"
	"go.uber.org/zap"
)

// Level is one resolved step of a hierarchy walk.
type Level struct {
	Kind  domain.Kind
	ID    string
	Title string
}

// WalkResult is the outcome of resolving a store root. When Empty is set
// the walk stopped at the last entry of Path because it has no children of
// MissingKind; Snapshot is nil then.
type WalkResult struct {
	Path        []Level
	Snapshot    *domain.Snapshot
	Empty       bool
	MissingKind domain.Kind
}

// Bootstrapper finds the subtree a store should be seeded from.
type Bootstrapper struct {
	server Server
	logger *zap.Logger
}

func NewBootstrapper(server Server, logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{server: server, logger: logger}
}

// Resolve returns the subtree of kind target. With an explicit id it is
// fetched directly. Otherwise the walk descends from the user, taking the
// most recently modified child at each level.
func (b *Bootstrapper) Resolve(ctx context.Context, userID string, target domain.Kind, id string) (*WalkResult, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, target)
	}
	if id != "" {
		snap, err := b.server.FetchSubtree(ctx, target, id)
		if err != nil {
			return nil, fmt.Errorf("fetching %s %s: %w", target, id, err)
		}
		return &WalkResult{
			Path:     []Level{levelOf(snap)},
			Snapshot: snap,
		}, nil
	}
	if userID == "" {
		return nil, fmt.Errorf("resolving %s: no user id", target)
	}

	res := &WalkResult{Path: []Level{{Kind: domain.KindUser, ID: userID}}}
	cur := userID
	for kind := domain.KindUser; kind != target; {
		child, ok := domain.ChildKind(kind)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not below %s", domain.ErrUnknownKind, target, kind)
		}
		children, err := b.server.FetchChildrenByParent(ctx, child, cur)
		if err != nil {
			return nil, fmt.Errorf("listing %s children of %s: %w", child, cur, err)
		}
		if len(children) == 0 {
			b.logger.Debug("hierarchy walk stopped",
				zap.String("kind", string(kind)),
				zap.String("id", cur),
				zap.String("missing", string(child)))
			res.Empty = true
			res.MissingKind = child
			return res, nil
		}
		pick := mostRecent(children)
		res.Path = append(res.Path, levelOf(pick))
		b.logger.Debug("hierarchy walk level",
			zap.String("kind", string(child)),
			zap.String("id", pick.ID),
			zap.Int("candidates", len(children)))
		cur = pick.ID
		kind = child
	}

	snap, err := b.server.FetchSubtree(ctx, target, cur)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s: %w", target, cur, err)
	}
	res.Snapshot = snap
	res.Path[len(res.Path)-1] = levelOf(snap)
	return res, nil
}

// mostRecent picks the child with the latest LastModified; the first in
// display order wins ties.
func mostRecent(children []*domain.Snapshot) *domain.Snapshot {
	pick := children[0]
	for _, c := range children[1:] {
		if c.LastModified.After(pick.LastModified) {
			pick = c
		}
	}
	return pick
}

func levelOf(s *domain.Snapshot) Level {
	return Level{Kind: s.Kind, ID: s.ID, Title: s.Fields[domain.DisplayField(s.Kind)]}
}
