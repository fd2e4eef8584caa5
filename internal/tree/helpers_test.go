package tree

import (
	"fmt"
	"testing"
	"time"

	"github.com/thomhug/resumedit/internal/domain"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testEnv returns an Env with a clock that advances one second per call
// and sequential client ids.
func testEnv() Env {
	tick := 0
	next := 0
	return Env{
		Now: func() time.Time {
			tick++
			return baseTime.Add(time.Duration(tick) * time.Second)
		},
		NewID: func() string {
			next++
			return fmt.Sprintf("c%03d", next)
		},
	}
}

func newResumeTree(t *testing.T) *Tree {
	t.Helper()
	return New(&domain.Node{
		ClientID:     "root",
		ID:           "srv-root",
		Kind:         domain.KindResume,
		Fields:       map[string]string{"name": "CV"},
		CreatedAt:    baseTime,
		LastModified: baseTime,
		Disposition:  domain.DispositionSynced,
	})
}

func mustAdd(t *testing.T, tr *Tree, env Env, parentID string, data map[string]string) (*Tree, string) {
	t.Helper()
	out, id, err := AddChild(tr, env, parentID, data)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	return out, id
}

func visibleTitles(tr *Tree, parentID string) []string {
	var titles []string
	for _, c := range tr.Children(parentID, false) {
		titles = append(titles, c.Title())
	}
	return titles
}
