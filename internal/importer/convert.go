package importer

import (
	"time"

	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/ordering"
)

// Convert turns a validated import into a snapshot of New nodes hanging
// under parentID, ready to push. Call ValidateImport first; Convert
// assumes the tree is valid.
func Convert(root *NodeImport, parentID string, now time.Time) *domain.Snapshot {
	kind, _ := domain.ParseKind(root.Kind)
	snap := convertNode(root, kind, now)
	snap.ParentID = parentID
	return snap
}

func convertNode(n *NodeImport, kind domain.Kind, now time.Time) *domain.Snapshot {
	s := &domain.Snapshot{
		ClientID:     domain.NewClientID(),
		Kind:         kind,
		Fields:       domain.FilterFields(kind, n.Fields),
		CreatedAt:    now,
		LastModified: now,
		Disposition:  domain.DispositionNew,
	}
	if len(n.Children) == 0 {
		return s
	}
	childKind, _ := domain.ChildKind(kind)
	keys := ordering.Rebalance(len(n.Children))
	s.Children = make([]*domain.Snapshot, len(n.Children))
	for i := range n.Children {
		c := convertNode(&n.Children[i], childKind, now)
		c.OrderValue = keys[i]
		s.Children[i] = c
	}
	return s
}
