package tree

import (
	"fmt"
	"maps"
	"slices"

	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/ordering"
)

func lookupChild(t *Tree, parentID, childID string) (*domain.Node, error) {
	p, ok := t.Get(parentID)
	if !ok {
		return nil, fmt.Errorf("parent %s: %w", parentID, ErrNodeNotFound)
	}
	if !slices.Contains(p.Children, childID) {
		return nil, fmt.Errorf("%s under %s: %w", childID, parentID, ErrNotChild)
	}
	return p, nil
}

// SetFields merges registered fields into the node's own fields. A payload
// with no recognised field leaves the tree unchanged.
func SetFields(t *Tree, env Env, clientID string, data map[string]string) (*Tree, error) {
	n, ok := t.Get(clientID)
	if !ok {
		return nil, fmt.Errorf("set fields on %s: %w", clientID, ErrNodeNotFound)
	}
	fields := domain.FilterFields(n.Kind, data)
	if len(fields) == 0 {
		return t, nil
	}
	now := env.Now()
	out := t.clone()
	e := out.edit(clientID)
	if e.Fields == nil {
		e.Fields = make(map[string]string, len(fields))
	}
	maps.Copy(e.Fields, fields)
	e.Touch(now)
	out.bubble(clientID, now)
	return out, nil
}

// SetChildFields is SetFields restricted to an immediate child of parentID.
func SetChildFields(t *Tree, env Env, parentID, childID string, data map[string]string) (*Tree, error) {
	if _, err := lookupChild(t, parentID, childID); err != nil {
		return nil, err
	}
	return SetFields(t, env, childID, data)
}

// AddChild appends a new child built from data.
func AddChild(t *Tree, env Env, parentID string, data map[string]string) (*Tree, string, error) {
	return AddChildAt(t, env, parentID, data, -1)
}

// AddChildAt inserts a new child before the index-th visible child. A
// negative or out of range index appends.
func AddChildAt(t *Tree, env Env, parentID string, data map[string]string, index int) (*Tree, string, error) {
	p, ok := t.Get(parentID)
	if !ok {
		return nil, "", fmt.Errorf("add child to %s: %w", parentID, ErrNodeNotFound)
	}
	kind, ok := domain.ChildKind(p.Kind)
	if !ok {
		return nil, "", fmt.Errorf("add child to %s %s: %w", p.Kind, parentID, ErrLeafKind)
	}

	pos := insertPosition(t, p, index)
	keys := make([]int64, len(p.Children))
	for i, cid := range p.Children {
		keys[i] = t.nodes[cid].OrderValue
	}
	key, rebalanced := ordering.InsertAt(keys, pos)

	now := env.Now()
	child := &domain.Node{
		ClientID:       env.NewID(),
		ParentID:       p.ID,
		ParentClientID: p.ClientID,
		Kind:           kind,
		Fields:         domain.FilterFields(kind, data),
		CreatedAt:      now,
		LastModified:   now,
		Disposition:    domain.DispositionNew,
		OrderValue:     key,
	}

	out := t.clone()
	if rebalanced != nil {
		for i, cid := range p.Children {
			newKey := rebalanced[i]
			if i >= pos {
				newKey = rebalanced[i+1]
			}
			if out.nodes[cid].OrderValue != newKey {
				c := out.edit(cid)
				c.OrderValue = newKey
				c.Touch(now)
			}
		}
	}
	out.nodes[child.ClientID] = child
	pe := out.edit(parentID)
	pe.Children = slices.Insert(pe.Children, pos, child.ClientID)
	pe.LastModified = now
	out.bubble(parentID, now)
	return out, child.ClientID, nil
}

// insertPosition maps a visible-child index onto the full children slice.
func insertPosition(t *Tree, p *domain.Node, index int) int {
	if index < 0 {
		return len(p.Children)
	}
	visible := 0
	for i, cid := range p.Children {
		if t.nodes[cid].Deleted() {
			continue
		}
		if visible == index {
			return i
		}
		visible++
	}
	return len(p.Children)
}

// MarkChildDeleted soft-deletes an immediate child. The child stays in the
// tree until a merge confirms the server no longer has it.
func MarkChildDeleted(t *Tree, env Env, parentID, childID string) (*Tree, error) {
	if _, err := lookupChild(t, parentID, childID); err != nil {
		return nil, err
	}
	if t.nodes[childID].Deleted() {
		return t, nil
	}
	now := env.Now()
	out := t.clone()
	c := out.edit(childID)
	c.DeletedAt = &now
	c.Touch(now)
	out.bubble(childID, now)
	return out, nil
}

// ReArrangeChildren applies a new display order. newOrder is either every
// child or every visible child; in the latter case soft-deleted children
// keep their slots. Only children whose key changes become Modified.
func ReArrangeChildren(t *Tree, env Env, parentID string, newOrder []string) (*Tree, error) {
	p, ok := t.Get(parentID)
	if !ok {
		return nil, fmt.Errorf("rearrange %s: %w", parentID, ErrNodeNotFound)
	}
	full, err := expandOrder(t, p, newOrder)
	if err != nil {
		return nil, fmt.Errorf("rearrange %s: %w", parentID, err)
	}
	keys := make([]int64, len(full))
	for i, cid := range full {
		keys[i] = t.nodes[cid].OrderValue
	}
	assigned, _ := ordering.Reassign(keys)
	if slices.Equal(full, p.Children) && slices.Equal(keys, assigned) {
		return t, nil
	}
	return applyKeys(t, env, parentID, full, assigned), nil
}

// ResetChildrenOrderValues rebalances every child's key, keeping the order.
func ResetChildrenOrderValues(t *Tree, env Env, parentID string) (*Tree, error) {
	p, ok := t.Get(parentID)
	if !ok {
		return nil, fmt.Errorf("rebalance %s: %w", parentID, ErrNodeNotFound)
	}
	return applyKeys(t, env, parentID, slices.Clone(p.Children), ordering.Rebalance(len(p.Children))), nil
}

func applyKeys(t *Tree, env Env, parentID string, order []string, keys []int64) *Tree {
	now := env.Now()
	out := t.clone()
	for i, cid := range order {
		if out.nodes[cid].OrderValue == keys[i] {
			continue
		}
		c := out.edit(cid)
		c.OrderValue = keys[i]
		c.Touch(now)
	}
	pe := out.edit(parentID)
	pe.Children = order
	pe.Reordered = true
	pe.LastModified = now
	out.bubble(parentID, now)
	return out
}

func expandOrder(t *Tree, p *domain.Node, newOrder []string) ([]string, error) {
	if isPermutation(newOrder, p.Children) {
		return slices.Clone(newOrder), nil
	}
	var visible []string
	for _, cid := range p.Children {
		if !t.nodes[cid].Deleted() {
			visible = append(visible, cid)
		}
	}
	if !isPermutation(newOrder, visible) {
		return nil, ErrBadOrder
	}
	full := make([]string, len(p.Children))
	next := 0
	for i, cid := range p.Children {
		if t.nodes[cid].Deleted() {
			full[i] = cid
			continue
		}
		full[i] = newOrder[next]
		next++
	}
	return full, nil
}

func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(b))
	for _, id := range b {
		counts[id]++
	}
	for _, id := range a {
		if counts[id] == 0 {
			return false
		}
		counts[id]--
	}
	return true
}

// UpdateChildDraft merges data into the parent's pending child payload.
func UpdateChildDraft(t *Tree, env Env, parentID string, data map[string]string) (*Tree, error) {
	p, ok := t.Get(parentID)
	if !ok {
		return nil, fmt.Errorf("update draft on %s: %w", parentID, ErrNodeNotFound)
	}
	kind, ok := domain.ChildKind(p.Kind)
	if !ok {
		return nil, fmt.Errorf("update draft on %s %s: %w", p.Kind, parentID, ErrLeafKind)
	}
	fields := domain.FilterFields(kind, data)
	now := env.Now()
	out := t.clone()
	pe := out.edit(parentID)
	if pe.Draft == nil {
		pe.Draft = make(map[string]string, len(fields))
	}
	maps.Copy(pe.Draft, fields)
	pe.LastModified = now
	out.bubble(parentID, now)
	return out, nil
}

// CommitChildDraft turns the pending payload into a real child and clears
// the draft.
func CommitChildDraft(t *Tree, env Env, parentID string) (*Tree, string, error) {
	p, ok := t.Get(parentID)
	if !ok {
		return nil, "", fmt.Errorf("commit draft on %s: %w", parentID, ErrNodeNotFound)
	}
	if len(p.Draft) == 0 {
		return nil, "", fmt.Errorf("commit draft on %s: %w", parentID, ErrEmptyDraft)
	}
	out, childID, err := AddChild(t, env, parentID, p.Draft)
	if err != nil {
		return nil, "", err
	}
	out.edit(parentID).Draft = nil
	return out, childID, nil
}
