package service

import (
	"context"
	"errors"
	"time"

	"github.com/thomhug/resumedit/internal/domain"
)

var (
	// ErrKindMismatch is returned when a node is addressed with the wrong kind.
	ErrKindMismatch = errors.New("kind mismatch")
	// ErrInvalidSnapshot is returned for pushes that break the hierarchy.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Server is the sync surface of the backend. Snapshots it returns are the
// canonical view: soft-deleted nodes are omitted and children are sorted.
type Server interface {
	FetchSubtree(ctx context.Context, kind domain.Kind, id string) (*domain.Snapshot, error)
	// FetchChildrenByParent lists the live children of parentID without
	// their own descendants. kind is the kind of the children.
	FetchChildrenByParent(ctx context.Context, kind domain.Kind, parentID string) ([]*domain.Snapshot, error)
	// PushSubtree upserts every pending node of the snapshot and returns
	// the canonical subtree. Synced nodes are not written.
	PushSubtree(ctx context.Context, kind domain.Kind, s *domain.Snapshot) (*domain.Snapshot, error)
	FetchLastModified(ctx context.Context, kind domain.Kind, id string) (time.Time, error)
}

// ServerOfRecord is the SQLite-backed Server plus user administration.
type ServerOfRecord interface {
	Server
	CreateUser(ctx context.Context, fields map[string]string) (*domain.Snapshot, error)
	ListUsers(ctx context.Context) ([]*domain.Snapshot, error)
}
