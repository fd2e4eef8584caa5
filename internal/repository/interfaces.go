package repository

import (
	"context"
	"time"

	"github.com/thomhug/resumedit/internal/domain"
)

// NodeRepo stores server-of-record nodes. Rows are returned as childless
// snapshots; assembling subtrees is the caller's job.
type NodeRepo interface {
	Create(ctx context.Context, n *domain.Snapshot) error
	GetByID(ctx context.Context, id string) (*domain.Snapshot, error)
	GetByClientID(ctx context.Context, clientID string) (*domain.Snapshot, error)
	ListChildren(ctx context.Context, parentID string, includeDeleted bool) ([]*domain.Snapshot, error)
	ListRoots(ctx context.Context, kind domain.Kind) ([]*domain.Snapshot, error)
	Update(ctx context.Context, n *domain.Snapshot) error
	MarkDeleted(ctx context.Context, id string, at time.Time) error
	MaxLastModified(ctx context.Context, id string) (time.Time, error)
}

// LocalStateRepo persists client trees keyed by store name.
type LocalStateRepo interface {
	Get(ctx context.Context, storeName string) (*domain.LocalState, error)
	Save(ctx context.Context, s *domain.LocalState) error
	Delete(ctx context.Context, storeName string) error
	MarkSynced(ctx context.Context, storeName string, at time.Time) error
}
