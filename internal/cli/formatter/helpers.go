package formatter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/service"
	"github.com/thomhug/resumedit/internal/syncer"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// ShortID returns the first 8 characters of an id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// HumanDate returns a human-friendly absolute date relative to now.
func HumanDate(t, now time.Time) string {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return "Today"
	}
	y3, m3, d3 := now.AddDate(0, 0, -1).Date()
	if y2 == y3 && m2 == m3 && d2 == d3 {
		return "Yesterday"
	}
	return t.Format("Jan 2, 2006")
}

// HumanTimestamp returns "Just now", "5m ago" and so on for recent times.
func HumanTimestamp(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return HumanDate(t, now)
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return HumanDate(t, now)
	}
}

// FormatNode lists a node's registered fields in display order, followed
// by its sync state.
func FormatNode(n *domain.Node, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", Bold(titleOr(n)), KindBadge(n.Kind))

	label := func(s string) string { return Dim(fmt.Sprintf("%-12s", strings.ToUpper(s))) }
	for _, f := range domain.FieldsFor(n.Kind) {
		v := n.Fields[f.Name]
		if v == "" {
			v = Dim("--")
		}
		fmt.Fprintf(&b, "  %s  %s\n", label(f.Name), v)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s  %s\n", label("client id"), n.ClientID)
	if n.ID != "" {
		fmt.Fprintf(&b, "  %s  %s\n", label("server id"), n.ID)
	}
	fmt.Fprintf(&b, "  %s  %s\n", label("state"), DispositionPill(n.Disposition))
	if n.Deleted() {
		fmt.Fprintf(&b, "  %s  %s\n", label("deleted"), StyleRed.Render(HumanTimestamp(*n.DeletedAt, now)))
	}
	fmt.Fprintf(&b, "  %s  %s\n", label("modified"), HumanTimestamp(n.LastModified, now))
	if len(n.Draft) > 0 {
		keys := make([]string, 0, len(n.Draft))
		for k := range n.Draft {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + n.Draft[k]
		}
		fmt.Fprintf(&b, "  %s  %s\n", label("draft"), StyleYellow.Render(strings.Join(parts, ", ")))
	}
	return b.String()
}

func titleOr(n *domain.Node) string {
	if t := n.Title(); t != "" {
		return t
	}
	return "(untitled)"
}

// FormatPath renders a hierarchy walk as "user › resume › organization".
func FormatPath(levels []service.Level) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		name := l.Title
		if name == "" {
			name = ShortID(l.ID)
		}
		parts[i] = Dim(string(l.Kind)+":") + name
	}
	return strings.Join(parts, Dim(" › "))
}

// FormatNotice renders a sync notice. Boxed output is meant for terminals;
// plain gives one line for logs and pipes.
func FormatNotice(n syncer.Notice, plain bool) string {
	if plain {
		return n.Title() + ": " + n.String()
	}
	body := fmt.Sprintf("%s %s\n%s %s  %s\n%s %s  %s",
		KindBadge(n.Kind), Dim(ShortID(n.RootID)),
		Dim("local "), n.Local.Local().Format("2006-01-02 15:04:05"), Dim(fmt.Sprintf("%d items", n.LocalCount)),
		Dim("server"), n.Server.Local().Format("2006-01-02 15:04:05"), Dim(fmt.Sprintf("%d items", n.ServerCount)))
	return RenderBox(n.Title(), body)
}

// FormatSyncResult summarises one sync cycle on a single line.
func FormatSyncResult(r syncer.Result) string {
	verb := "Fetched"
	if r.Pushed {
		verb = "Pushed"
	}
	s := fmt.Sprintf("%s (cycle %d): %d confirmed, %d adopted, %d inserted, %d dropped, %d kept",
		verb, r.Seq, r.Stats.Confirmed, r.Stats.Adopted, r.Stats.Inserted, r.Stats.Dropped, r.Stats.Kept+r.Stats.Pending)
	if !r.Applied {
		s += Dim(" (superseded)")
	}
	return s
}

// RenderTable renders rows under a header with columns padded to their
// widest visible cell.
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	const colGap = 2
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style func(...string) string) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(style(cell))
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+colGap))
			}
		}
		b.WriteString("\n")
	}
	writeRow(headers, StyleHeader.Render)
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("─", w)
	}
	writeRow(seps, StyleDim.Render)
	for _, row := range rows {
		writeRow(row, func(s ...string) string { return strings.Join(s, " ") })
	}
	return b.String()
}
