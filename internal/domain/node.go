package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Node is one entry of the client-side content tree. Children hold client
// ids into the owning tree's node table, in display order.
type Node struct {
	ClientID       string
	ID             string // server-assigned; empty until accepted once
	ParentID       string
	ParentClientID string
	Kind           Kind
	Fields         map[string]string
	CreatedAt      time.Time
	LastModified   time.Time
	DeletedAt      *time.Time
	Disposition    Disposition
	OrderValue     int64
	Children       []string
	Draft          map[string]string
	Reordered      bool // local reorder not yet echoed by the server
}

// NewClientID allocates a fresh client id.
func NewClientID() string {
	return uuid.New().String()
}

// Deleted reports whether the node is soft-deleted.
func (n *Node) Deleted() bool {
	return n.DeletedAt != nil
}

// Title returns the node's display field value.
func (n *Node) Title() string {
	return n.Fields[DisplayField(n.Kind)]
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	c.Fields = maps.Clone(n.Fields)
	c.Draft = maps.Clone(n.Draft)
	c.Children = slices.Clone(n.Children)
	if n.DeletedAt != nil {
		d := *n.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}

// Touch marks the node as locally edited at now.
func (n *Node) Touch(now time.Time) {
	n.LastModified = now
	n.Disposition = DispositionModified
}
