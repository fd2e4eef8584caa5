package testutil

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/thomhug/resumedit/internal/domain"
)

// Node options
type NodeOption func(*domain.Snapshot)

func WithID(id string) NodeOption {
	return func(n *domain.Snapshot) {
		n.ID = id
	}
}

func WithClientID(id string) NodeOption {
	return func(n *domain.Snapshot) {
		n.ClientID = id
	}
}

func WithParentID(id string) NodeOption {
	return func(n *domain.Snapshot) {
		n.ParentID = id
	}
}

func WithOrderValue(v int64) NodeOption {
	return func(n *domain.Snapshot) {
		n.OrderValue = v
	}
}

// WithField sets one field value.
func WithField(name, value string) NodeOption {
	return func(n *domain.Snapshot) {
		n.Fields[name] = value
	}
}

func WithLastModified(t time.Time) NodeOption {
	return func(n *domain.Snapshot) {
		n.LastModified = t
	}
}

func WithDeletedAt(t time.Time) NodeOption {
	return func(n *domain.Snapshot) {
		n.DeletedAt = &t
	}
}

func WithDisposition(d domain.Disposition) NodeOption {
	return func(n *domain.Snapshot) {
		n.Disposition = d
	}
}

// WithChildren nests children under the node and points their ParentID
// at it.
func WithChildren(children ...*domain.Snapshot) NodeOption {
	return func(n *domain.Snapshot) {
		for _, c := range children {
			c.ParentID = n.ID
		}
		n.Children = append(n.Children, children...)
	}
}

// NewTestNode builds a server-shaped node with fresh ids whose display
// field is title.
func NewTestNode(kind domain.Kind, title string, opts ...NodeOption) *domain.Snapshot {
	now := time.Now().UTC()
	n := &domain.Snapshot{
		ID:           ulid.Make().String(),
		ClientID:     domain.NewClientID(),
		Kind:         kind,
		Fields:       map[string]string{domain.DisplayField(kind): title},
		CreatedAt:    now,
		LastModified: now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewLocalNode builds a node that exists only on the client.
func NewLocalNode(kind domain.Kind, title string, opts ...NodeOption) *domain.Snapshot {
	base := []NodeOption{WithID(""), WithDisposition(domain.DispositionNew)}
	return NewTestNode(kind, title, append(base, opts...)...)
}
