package tree

import (
	"maps"

	"github.com/thomhug/resumedit/internal/domain"
)

// FromSnapshot builds a tree from a nested snapshot. Nodes without a
// disposition are taken to be server data and marked Synced. Children are
// sorted by order value.
func FromSnapshot(s *domain.Snapshot) *Tree {
	nodes := make(map[string]*domain.Node, s.Count())
	addSnapshot(nodes, s, "")
	return FromNodes(s.ClientID, nodes)
}

func addSnapshot(nodes map[string]*domain.Node, s *domain.Snapshot, parentClientID string) *domain.Node {
	n := NodeFromSnapshot(s)
	n.ParentClientID = parentClientID
	nodes[n.ClientID] = n
	for _, cs := range s.Children {
		c := addSnapshot(nodes, cs, n.ClientID)
		n.Children = append(n.Children, c.ClientID)
	}
	SortChildIDs(n.Children, func(id string) *domain.Node { return nodes[id] })
	return n
}

// NodeFromSnapshot converts a single snapshot entry, without children.
func NodeFromSnapshot(s *domain.Snapshot) *domain.Node {
	disp := s.Disposition
	if disp == "" {
		disp = domain.DispositionSynced
	}
	n := &domain.Node{
		ClientID:     s.ClientID,
		ID:           s.ID,
		ParentID:     s.ParentID,
		Kind:         s.Kind,
		Fields:       maps.Clone(s.Fields),
		CreatedAt:    s.CreatedAt,
		LastModified: s.LastModified,
		Disposition:  disp,
		OrderValue:   s.OrderValue,
		Draft:        maps.Clone(s.Draft),
		Reordered:    s.Reordered,
	}
	if n.Fields == nil {
		n.Fields = map[string]string{}
	}
	if s.DeletedAt != nil {
		d := *s.DeletedAt
		n.DeletedAt = &d
	}
	return n
}

// Snapshot serialises the subtree rooted at clientID, deleted nodes
// included. It returns nil for an unknown id.
func (t *Tree) Snapshot(clientID string) *domain.Snapshot {
	n, ok := t.Get(clientID)
	if !ok {
		return nil
	}
	s := &domain.Snapshot{
		ClientID:     n.ClientID,
		ID:           n.ID,
		ParentID:     n.ParentID,
		Kind:         n.Kind,
		Fields:       maps.Clone(n.Fields),
		CreatedAt:    n.CreatedAt,
		LastModified: n.LastModified,
		Disposition:  n.Disposition,
		OrderValue:   n.OrderValue,
		Draft:        maps.Clone(n.Draft),
		Reordered:    n.Reordered,
	}
	if n.DeletedAt != nil {
		d := *n.DeletedAt
		s.DeletedAt = &d
	}
	for _, cid := range n.Children {
		if cs := t.Snapshot(cid); cs != nil {
			s.Children = append(s.Children, cs)
		}
	}
	return s
}
