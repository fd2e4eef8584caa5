// Package tree holds the client-side content tree as a flat table of nodes
// keyed by client id, plus the pure reducers that are the only legal way to
// change it. Reducers never modify their input tree; they return a new one
// that shares every untouched node with the old.
package tree

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/ordering"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNotChild     = errors.New("not an immediate child")
	ErrLeafKind     = errors.New("node kind has no children")
	ErrEmptyDraft   = errors.New("draft is empty")
	ErrBadOrder     = errors.New("order is not a permutation of the children")
)

// Env supplies the clock and id source used by reducers.
type Env struct {
	Now   func() time.Time
	NewID func() string
}

// DefaultEnv uses the wall clock in UTC and uuid client ids.
func DefaultEnv() Env {
	return Env{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: domain.NewClientID,
	}
}

// Tree is an immutable value. Nodes returned by its accessors are shared
// with other trees and must not be modified.
type Tree struct {
	RootClientID string
	nodes        map[string]*domain.Node
}

// New returns a tree holding a single root node.
func New(root *domain.Node) *Tree {
	return &Tree{
		RootClientID: root.ClientID,
		nodes:        map[string]*domain.Node{root.ClientID: root},
	}
}

// FromNodes builds a tree from an already consistent node table.
func FromNodes(rootClientID string, nodes map[string]*domain.Node) *Tree {
	return &Tree{RootClientID: rootClientID, nodes: nodes}
}

func (t *Tree) Root() *domain.Node {
	if t == nil {
		return nil
	}
	return t.nodes[t.RootClientID]
}

func (t *Tree) Get(clientID string) (*domain.Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.nodes[clientID]
	return n, ok
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Children returns the direct children of a node in display order.
func (t *Tree) Children(clientID string, includeDeleted bool) []*domain.Node {
	n, ok := t.Get(clientID)
	if !ok {
		return nil
	}
	out := make([]*domain.Node, 0, len(n.Children))
	for _, cid := range n.Children {
		c := t.nodes[cid]
		if c == nil || (!includeDeleted && c.Deleted()) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Walk visits the subtree rooted at clientID depth-first in display order,
// skipping soft-deleted nodes and everything below them. Returning false
// from fn stops descent into that node's children.
func (t *Tree) Walk(clientID string, fn func(n *domain.Node, depth int) bool) {
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		n, ok := t.Get(id)
		if !ok || n.Deleted() {
			return
		}
		if !fn(n, depth) {
			return
		}
		for _, cid := range n.Children {
			visit(cid, depth+1)
		}
	}
	visit(clientID, 0)
}

// Dirty reports whether the node or any descendant has unpushed changes.
func (t *Tree) Dirty(clientID string) bool {
	n, ok := t.Get(clientID)
	if !ok {
		return false
	}
	if n.Disposition.Dirty() || n.Reordered {
		return true
	}
	for _, cid := range n.Children {
		if t.Dirty(cid) {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of the tree.
func (t *Tree) Validate() error {
	root, ok := t.Get(t.RootClientID)
	if !ok {
		return fmt.Errorf("root %s: %w", t.RootClientID, ErrNodeNotFound)
	}
	seen := make(map[string]bool, len(t.nodes))
	var check func(n *domain.Node) error
	check = func(n *domain.Node) error {
		if seen[n.ClientID] {
			return fmt.Errorf("client id %s appears twice", n.ClientID)
		}
		seen[n.ClientID] = true
		var prev *domain.Node
		for _, cid := range n.Children {
			c, ok := t.nodes[cid]
			if !ok {
				return fmt.Errorf("child %s of %s: %w", cid, n.ClientID, ErrNodeNotFound)
			}
			if c.ParentClientID != n.ClientID {
				return fmt.Errorf("child %s points at parent %s, want %s", cid, c.ParentClientID, n.ClientID)
			}
			if prev != nil && compareNodes(prev, c) >= 0 {
				return fmt.Errorf("children of %s out of order at %s", n.ClientID, cid)
			}
			if err := check(c); err != nil {
				return err
			}
			prev = c
		}
		return nil
	}
	if err := check(root); err != nil {
		return err
	}
	if len(seen) != len(t.nodes) {
		return fmt.Errorf("%d unreachable nodes", len(t.nodes)-len(seen))
	}
	return nil
}

func sortable(n *domain.Node) ordering.Sortable {
	return ordering.Sortable{Key: n.OrderValue, CreatedAt: n.CreatedAt, ID: n.ClientID}
}

func compareNodes(a, b *domain.Node) int {
	return ordering.Compare(sortable(a), sortable(b))
}

// SortChildIDs orders client ids by the nodes' order values with the
// creation-time tie-break.
func SortChildIDs(ids []string, lookup func(string) *domain.Node) {
	slices.SortStableFunc(ids, func(a, b string) int {
		return compareNodes(lookup(a), lookup(b))
	})
}

// clone returns a writable copy of the tree's node table.
func (t *Tree) clone() *Tree {
	return &Tree{RootClientID: t.RootClientID, nodes: maps.Clone(t.nodes)}
}

// edit replaces a node with a private copy and returns it.
func (t *Tree) edit(clientID string) *domain.Node {
	c := t.nodes[clientID].Clone()
	t.nodes[clientID] = c
	return c
}

// bubble stamps now on every ancestor of clientID.
func (t *Tree) bubble(clientID string, now time.Time) {
	n := t.nodes[clientID]
	for n != nil && n.ParentClientID != "" {
		p, ok := t.nodes[n.ParentClientID]
		if !ok {
			return
		}
		p = t.edit(p.ClientID)
		p.LastModified = now
		n = p
	}
}
