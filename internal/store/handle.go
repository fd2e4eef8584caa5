package store

import (
	"context"

	"github.com/thomhug/resumedit/internal/domain"
)

// Handle is a view of one node of a store. It holds only the client id,
// so it stays valid across mutations and always reads the latest tree.
type Handle struct {
	s  *Store
	id string
}

func (h *Handle) ID() string { return h.id }

// Get returns the node as of the current tree.
func (h *Handle) Get() (*domain.Node, bool) {
	return h.s.Tree().Get(h.id)
}

func (h *Handle) Children(includeDeleted bool) []*domain.Node {
	return h.s.Tree().Children(h.id, includeDeleted)
}

func (h *Handle) Dirty() bool {
	return h.s.Tree().Dirty(h.id)
}

func (h *Handle) Snapshot() *domain.Snapshot {
	return h.s.Tree().Snapshot(h.id)
}

// Child returns a handle on childID.
func (h *Handle) Child(childID string) *Handle {
	return h.s.Node(childID)
}

func (h *Handle) SetFields(ctx context.Context, data map[string]string) error {
	return h.s.SetFields(ctx, h.id, data)
}

func (h *Handle) SetChildFields(ctx context.Context, childID string, data map[string]string) error {
	return h.s.SetChildFields(ctx, h.id, childID, data)
}

func (h *Handle) AddChild(ctx context.Context, data map[string]string) (*Handle, error) {
	id, err := h.s.AddChild(ctx, h.id, data)
	if err != nil {
		return nil, err
	}
	return h.s.Node(id), nil
}

func (h *Handle) AddChildAt(ctx context.Context, data map[string]string, index int) (*Handle, error) {
	id, err := h.s.AddChildAt(ctx, h.id, data, index)
	if err != nil {
		return nil, err
	}
	return h.s.Node(id), nil
}

func (h *Handle) MarkChildDeleted(ctx context.Context, childID string) error {
	return h.s.MarkChildDeleted(ctx, h.id, childID)
}

func (h *Handle) ReArrangeChildren(ctx context.Context, newOrder []string) error {
	return h.s.ReArrangeChildren(ctx, h.id, newOrder)
}

func (h *Handle) ResetChildrenOrderValues(ctx context.Context) error {
	return h.s.ResetChildrenOrderValues(ctx, h.id)
}

func (h *Handle) UpdateChildDraft(ctx context.Context, data map[string]string) error {
	return h.s.UpdateChildDraft(ctx, h.id, data)
}

func (h *Handle) CommitChildDraft(ctx context.Context) (*Handle, error) {
	id, err := h.s.CommitChildDraft(ctx, h.id)
	if err != nil {
		return nil, err
	}
	return h.s.Node(id), nil
}
