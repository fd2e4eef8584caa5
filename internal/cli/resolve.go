package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/store"
	"github.com/thomhug/resumedit/internal/tree"
)

var errNothingLoaded = errors.New("nothing loaded")

func kindFlag(cmd *cobra.Command) (domain.Kind, error) {
	raw, err := cmd.Flags().GetString("kind")
	if err != nil {
		return "", err
	}
	return domain.ParseKind(raw)
}

// openStore opens the store selected by --kind.
func openStore(ctx context.Context, cmd *cobra.Command, app *App) (*store.Store, error) {
	kind, err := kindFlag(cmd)
	if err != nil {
		return nil, err
	}
	return app.Stores.Open(ctx, kind)
}

// loadedStore is openStore for commands that need a tree to work on.
func loadedStore(ctx context.Context, cmd *cobra.Command, app *App) (*store.Store, error) {
	st, err := openStore(ctx, cmd, app)
	if err != nil {
		return nil, err
	}
	if st.Empty() {
		return nil, fmt.Errorf("%w for %s; run `resumedit open` first", errNothingLoaded, st.Kind())
	}
	return st, nil
}

// resolveNode maps a user reference to a client id. "", "." and "root"
// name the root; otherwise ref is a client id, a server id or a unique
// prefix of either.
func resolveNode(st *store.Store, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "." || ref == "root" {
		return st.RootID(), nil
	}

	t := st.Tree()
	var matches []string
	exact := ""
	t.Walk(st.RootID(), func(n *domain.Node, _ int) bool {
		switch {
		case n.ClientID == ref || (n.ID != "" && n.ID == ref):
			exact = n.ClientID
			return false
		case strings.HasPrefix(n.ClientID, ref) || (n.ID != "" && strings.HasPrefix(n.ID, ref)):
			matches = append(matches, n.ClientID)
		}
		return true
	})

	switch {
	case exact != "":
		return exact, nil
	case len(matches) == 1:
		return matches[0], nil
	case len(matches) > 1:
		return "", fmt.Errorf("%q matches %d nodes, use a longer prefix", ref, len(matches))
	default:
		return "", fmt.Errorf("%q: %w", ref, tree.ErrNodeNotFound)
	}
}

func parentOf(st *store.Store, clientID string) (string, error) {
	n, ok := st.Tree().Get(clientID)
	if !ok {
		return "", fmt.Errorf("%s: %w", clientID, tree.ErrNodeNotFound)
	}
	if n.ParentClientID == "" {
		return "", fmt.Errorf("%s is the root of the %s store", clientID, st.Kind())
	}
	return n.ParentClientID, nil
}

// checkFields rejects a payload in which no field is registered for kind,
// since the store would silently ignore it.
func checkFields(kind domain.Kind, fields map[string]string) error {
	if len(fields) == 0 {
		return fmt.Errorf("no fields given; use --field name=value")
	}
	if len(domain.FilterFields(kind, fields)) > 0 {
		return nil
	}
	names := make([]string, 0)
	for _, f := range domain.FieldsFor(kind) {
		names = append(names, f.Name)
	}
	return fmt.Errorf("no valid %s fields given (valid: %s)", kind, strings.Join(names, ", "))
}
