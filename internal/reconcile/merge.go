// Package reconcile merges a locally edited tree with a server snapshot of
// the same root.
//
// Local edits win over the server copy: the snapshot being merged was read
// at or before the client's pending edit, so a Modified node keeps its own
// content until an echo of exactly that content comes back.
package reconcile

import (
	"maps"

	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/tree"
)

// Stats counts what a merge did with each node.
type Stats struct {
	Adopted   int // server version taken over a Synced node
	Confirmed int // pending local edit echoed back by the server
	Kept      int // local edit kept over a differing server version
	Pending   int // local node not on the server yet, kept for the next push
	Inserted  int // new from the server
	Dropped   int // removed because the server no longer has it
}

type merger struct {
	env   tree.Env
	taken map[string]bool
	out   map[string]*domain.Node
	stats Stats
}

// Merge reconciles client with server and returns the new canonical tree.
// A nil client hydrates the snapshot as-is. If the roots do not describe
// the same node the server tree replaces the client tree. Merge is
// idempotent for a fixed snapshot.
func Merge(client *tree.Tree, server *domain.Snapshot, env tree.Env) (*tree.Tree, Stats) {
	if server == nil {
		return client, Stats{}
	}
	m := &merger{
		env:   env,
		taken: make(map[string]bool),
		out:   make(map[string]*domain.Node),
	}
	root := client.Root()
	if root == nil || !sameNode(root, server) {
		n := m.insert(server, nil)
		return tree.FromNodes(n.ClientID, m.out), m.stats
	}
	collectIDs(client, root.ClientID, m.taken)
	n := m.merge(client, root, server, nil)
	return tree.FromNodes(n.ClientID, m.out), m.stats
}

func collectIDs(t *tree.Tree, id string, into map[string]bool) {
	n, ok := t.Get(id)
	if !ok {
		return
	}
	into[id] = true
	for _, cid := range n.Children {
		collectIDs(t, cid, into)
	}
}

func sameNode(n *domain.Node, s *domain.Snapshot) bool {
	if n.ID != "" && s.ID != "" {
		return n.ID == s.ID
	}
	return n.ClientID != "" && n.ClientID == s.ClientID
}

// merge handles a node present on both sides.
func (m *merger) merge(client *tree.Tree, c *domain.Node, s *domain.Snapshot, parent *domain.Node) *domain.Node {
	var n *domain.Node
	switch {
	case c.Disposition == domain.DispositionSynced:
		n = fromServer(s, c)
		m.stats.Adopted++
	case c.Hash() == s.Hash():
		n = fromServer(s, c)
		m.stats.Confirmed++
	default:
		n = c.Clone()
		if n.ID == "" {
			n.ID = s.ID
			n.CreatedAt = s.CreatedAt
		}
		n.Disposition = domain.DispositionModified
		m.stats.Kept++
	}
	n.Children = nil
	link(n, parent)
	m.out[n.ClientID] = n

	byID := make(map[string]*domain.Snapshot, len(s.Children))
	byClientID := make(map[string]*domain.Snapshot, len(s.Children))
	for _, sc := range s.Children {
		if sc.ID != "" {
			byID[sc.ID] = sc
		}
		if sc.ClientID != "" {
			byClientID[sc.ClientID] = sc
		}
	}
	used := make(map[*domain.Snapshot]bool, len(s.Children))
	localOrder := c.Reordered
	orderEchoed := true

	for _, cid := range c.Children {
		cc, ok := client.Get(cid)
		if !ok {
			continue
		}
		sc := byID[cc.ID]
		if sc == nil && cc.ID == "" {
			sc = byClientID[cc.ClientID]
		}
		if sc == nil || used[sc] {
			m.unmatched(client, cc, n)
			continue
		}
		used[sc] = true
		child := m.merge(client, cc, sc, n)
		if localOrder && child.OrderValue != cc.OrderValue && child.Disposition == domain.DispositionSynced {
			child.OrderValue = cc.OrderValue
			child.Disposition = domain.DispositionModified
		}
		if child.OrderValue != sc.OrderValue {
			orderEchoed = false
		}
		n.Children = append(n.Children, child.ClientID)
	}
	for _, sc := range s.Children {
		if used[sc] {
			continue
		}
		child := m.insert(sc, n)
		n.Children = append(n.Children, child.ClientID)
	}

	n.Reordered = localOrder && !orderEchoed
	tree.SortChildIDs(n.Children, func(id string) *domain.Node { return m.out[id] })
	return n
}

// unmatched handles a client node with no server counterpart and appends it
// to parent when it survives.
func (m *merger) unmatched(client *tree.Tree, c *domain.Node, parent *domain.Node) {
	if !survives(c) {
		m.stats.Dropped += subtreeSize(client, c.ClientID)
		return
	}
	m.stats.Pending++
	n := c.Clone()
	n.Children = nil
	link(n, parent)
	m.out[n.ClientID] = n
	for _, cid := range c.Children {
		if cc, ok := client.Get(cid); ok {
			m.unmatched(client, cc, n)
		}
	}
	tree.SortChildIDs(n.Children, func(id string) *domain.Node { return m.out[id] })
	parent.Children = append(parent.Children, n.ClientID)
}

// survives decides whether a node the server does not have stays local.
// Never-pushed nodes stay unless they were deleted before reaching the
// server. Synced nodes and pushed deletions are gone server-side. Other
// pending edits are kept so the next push can recreate them.
func survives(c *domain.Node) bool {
	return c.Disposition != domain.DispositionSynced && !c.Deleted()
}

// insert adds a server-only subtree.
func (m *merger) insert(s *domain.Snapshot, parent *domain.Node) *domain.Node {
	clientID := s.ClientID
	if clientID == "" || m.taken[clientID] || m.out[clientID] != nil {
		clientID = m.env.NewID()
	}
	n := tree.NodeFromSnapshot(s)
	n.ClientID = clientID
	n.Disposition = domain.DispositionSynced
	n.Reordered = false
	n.Draft = nil
	n.Children = nil
	link(n, parent)
	m.out[n.ClientID] = n
	m.stats.Inserted++
	for _, sc := range s.Children {
		child := m.insert(sc, n)
		n.Children = append(n.Children, child.ClientID)
	}
	tree.SortChildIDs(n.Children, func(id string) *domain.Node { return m.out[id] })
	return n
}

// fromServer takes the server's version of a node while keeping the
// client's identity and local-only draft.
func fromServer(s *domain.Snapshot, c *domain.Node) *domain.Node {
	n := tree.NodeFromSnapshot(s)
	n.ClientID = c.ClientID
	n.Disposition = domain.DispositionSynced
	n.Reordered = false
	n.Draft = maps.Clone(c.Draft)
	return n
}

func link(n, parent *domain.Node) {
	if parent == nil {
		n.ParentClientID = ""
		return
	}
	n.ParentClientID = parent.ClientID
	if parent.ID != "" {
		n.ParentID = parent.ID
	}
}

func subtreeSize(t *tree.Tree, id string) int {
	n, ok := t.Get(id)
	if !ok {
		return 0
	}
	size := 1
	for _, cid := range n.Children {
		size += subtreeSize(t, cid)
	}
	return size
}
