package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/tree"
)

// TreeItem represents a single node in a tree display.
type TreeItem struct {
	Title       string
	ID          string // short id shown dimmed before the title; "" hides it
	Level       int
	IsLast      bool
	Ancestors   []bool // per enclosing level, whether that ancestor was last
	Disposition domain.Disposition
	Deleted     bool
	Detail      string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeBlank  = "   "
)

// RenderTree renders items as an indented tree with box-drawing
// connectors. Detail badges are right-aligned.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type lineInfo struct {
		content string
		badge   string
	}

	lines := make([]lineInfo, len(items))
	maxContentWidth := 0

	for idx, item := range items {
		var prefix strings.Builder
		if item.Level > 0 {
			for i := 1; i < item.Level; i++ {
				if i-1 < len(item.Ancestors) && item.Ancestors[i-1] {
					prefix.WriteString(treeBlank)
				} else {
					prefix.WriteString(treePipe)
				}
			}
			if item.IsLast {
				prefix.WriteString(treeCorner)
			} else {
				prefix.WriteString(treeBranch)
			}
		}

		title := item.Title
		switch {
		case title == "":
			title = Dim("(untitled)")
		case item.Deleted:
			title = StyleStrike.Render(title)
		}
		if item.ID != "" {
			title = StyleDim.Render(item.ID+" ") + title
		}

		content := prefix.String() + DispositionMarker(item.Disposition, item.Deleted) + title
		lines[idx].content = content
		if item.Detail != "" {
			lines[idx].badge = StyleBlue.Render(fmt.Sprintf("[ %s ]", item.Detail))
		}
		if w := lipgloss.Width(content); w > maxContentWidth {
			maxContentWidth = w
		}
	}

	var b strings.Builder
	for _, li := range lines {
		if li.badge == "" {
			b.WriteString(li.content + "\n")
			continue
		}
		pad := max(maxContentWidth-lipgloss.Width(li.content), 0)
		b.WriteString(li.content + strings.Repeat(" ", pad) + "  " + li.badge + "\n")
	}
	return b.String()
}

// TreeItems flattens the subtree rooted at clientID in display order.
// Deleted nodes and their subtrees are listed only with includeDeleted.
func TreeItems(t *tree.Tree, clientID string, includeDeleted bool) []TreeItem {
	var items []TreeItem
	var visit func(n *domain.Node, level int, last bool, ancestors []bool)
	visit = func(n *domain.Node, level int, last bool, ancestors []bool) {
		items = append(items, TreeItem{
			Title:       n.Title(),
			ID:          ShortID(n.ClientID),
			Level:       level,
			IsLast:      last,
			Ancestors:   ancestors,
			Disposition: n.Disposition,
			Deleted:     n.Deleted(),
			Detail:      nodeDetail(n),
		})
		children := t.Children(n.ClientID, includeDeleted)
		next := ancestors
		if level > 0 {
			next = append(append([]bool(nil), ancestors...), last)
		}
		for i, c := range children {
			visit(c, level+1, i == len(children)-1, next)
		}
	}
	if n, ok := t.Get(clientID); ok && (includeDeleted || !n.Deleted()) {
		visit(n, 0, true, nil)
	}
	return items
}

func nodeDetail(n *domain.Node) string {
	switch n.Kind {
	case domain.KindRole:
		start, end := n.Fields["startDate"], n.Fields["endDate"]
		if start == "" && end == "" {
			return ""
		}
		if end == "" {
			end = "now"
		}
		return start + " – " + end
	case domain.KindOrganization:
		return n.Fields["location"]
	case domain.KindAchievement:
		return n.Fields["value"]
	default:
		return ""
	}
}

// FormatTree renders the whole tree, or a hint when it is empty.
func FormatTree(t *tree.Tree, includeDeleted bool) string {
	root := t.Root()
	if root == nil {
		return Dim("Nothing loaded. Run `resumedit open` first.") + "\n"
	}
	return RenderTree(TreeItems(t, root.ClientID, includeDeleted))
}
