package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomhug/resumedit/internal/config"
	"github.com/thomhug/resumedit/internal/domain"
	"github.com/thomhug/resumedit/internal/repository"
	"github.com/thomhug/resumedit/internal/service"
	"github.com/thomhug/resumedit/internal/store"
	"github.com/thomhug/resumedit/internal/testutil"
	"github.com/thomhug/resumedit/internal/tree"
)

// testApp wires a full App over one in-memory DB that holds both the
// server tables and the local store state.
func testApp(t *testing.T) *App {
	t.Helper()
	database := testutil.NewTestDB(t)
	server := service.NewServerOfRecord(repository.NewSQLiteNodeRepo(database), testutil.NewTestUoW(database))

	cfg := config.DefaultConfig()
	cfg.SyncIntervalSeconds = 0
	return &App{
		Server: server,
		Stores: store.NewRegistry(repository.NewSQLiteLocalStateRepo(database), store.Options{}),
		Walker: service.NewBootstrapper(server, nil),
		Config: cfg,
		Plain:  true,
	}
}

// withUser creates a user and makes it the configured one.
func withUser(t *testing.T, app *App) string {
	t.Helper()
	u, err := app.Server.CreateUser(context.Background(), map[string]string{"name": "Ada"})
	require.NoError(t, err)
	app.Config.UserID = u.ID
	return u.ID
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func mustExec(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := executeCmd(t, app, args...)
	require.NoError(t, err, out)
	return out
}

func resumeStore(t *testing.T, app *App) *store.Store {
	t.Helper()
	st, ok := app.Stores.Get(domain.KindResume)
	require.True(t, ok)
	return st
}

func childByTitle(t *testing.T, st *store.Store, parentID, title string) *domain.Node {
	t.Helper()
	for _, c := range st.Node(parentID).Children(true) {
		if c.Title() == title {
			return c
		}
	}
	t.Fatalf("no child %q under %s", title, parentID)
	return nil
}

func TestUserCreateAndList(t *testing.T) {
	app := testApp(t)

	out := mustExec(t, app, "user", "list")
	assert.Contains(t, out, "No users yet")

	out = mustExec(t, app, "user", "create", "--field", "name=Ada", "-f", "email=ada@example.com")
	assert.Contains(t, out, "Created user Ada")

	out = mustExec(t, app, "user", "list")
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "ada@example.com")
}

func TestUserCreate_RequiresKnownField(t *testing.T) {
	app := testApp(t)
	_, err := executeCmd(t, app, "user", "create", "-f", "nickname=A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid: name, email")
}

func TestOpen_EmptyLevelThenCreate(t *testing.T) {
	app := testApp(t)
	withUser(t, app)

	out := mustExec(t, app, "open")
	assert.Contains(t, out, "No resume yet. Pass --create")

	out = mustExec(t, app, "open", "--create", "-f", "name=Main")
	assert.Contains(t, out, "resume:Main")
	assert.Contains(t, out, "Main")

	st := resumeStore(t, app)
	root, ok := st.Root().Get()
	require.True(t, ok)
	assert.NotEmpty(t, root.ID)
	assert.False(t, st.Dirty())
}

func TestOpen_ByID(t *testing.T) {
	app := testApp(t)
	withUser(t, app)
	mustExec(t, app, "open", "--create", "-f", "name=Main")
	id := resumeStore(t, app).Snapshot().ID

	out := mustExec(t, app, "open", "--id", id)
	assert.Contains(t, out, "resume:Main")
}

func TestOpen_NoUser(t *testing.T) {
	app := testApp(t)
	_, err := executeCmd(t, app, "open")
	assert.ErrorContains(t, err, "no user id")
}

func TestEditAndSyncRoundTrip(t *testing.T) {
	app := testApp(t)
	withUser(t, app)
	mustExec(t, app, "open", "--create", "-f", "name=Main")

	out := mustExec(t, app, "add", ".", "-f", "name=Acme", "-f", "location=Basel")
	assert.Contains(t, out, "Added organization Acme")

	st := resumeStore(t, app)
	org := childByTitle(t, st, st.RootID(), "Acme")

	mustExec(t, app, "add", org.ClientID, "-f", "title=Engineer")
	mustExec(t, app, "add", org.ClientID, "-f", "title=Lead")
	mustExec(t, app, "add", org.ClientID, "-f", "title=Intern", "--at", "0")
	assert.Equal(t, []string{"Intern", "Engineer", "Lead"}, titles(st.Node(org.ClientID).Children(false)))

	out = mustExec(t, app, "show")
	assert.Contains(t, out, "unsynced edits")
	assert.Contains(t, out, "[ Basel ]")

	lead := childByTitle(t, st, org.ClientID, "Lead")
	out = mustExec(t, app, "move", lead.ClientID[:8], "--to", "0")
	assert.Contains(t, out, "Lead")
	assert.Equal(t, []string{"Lead", "Intern", "Engineer"}, titles(st.Node(org.ClientID).Children(false)))

	intern := childByTitle(t, st, org.ClientID, "Intern")
	mustExec(t, app, "rm", intern.ClientID)
	mustExec(t, app, "set", lead.ClientID, "-f", "startDate=2021")

	out = mustExec(t, app, "sync")
	assert.Contains(t, out, "Pushed")
	assert.False(t, st.Dirty())

	out = mustExec(t, app, "show")
	assert.Contains(t, out, "in sync")
	assert.NotContains(t, out, "Intern")

	// The server holds the same tree.
	server, err := app.Server.FetchSubtree(context.Background(), domain.KindResume, st.Snapshot().ID)
	require.NoError(t, err)
	require.Len(t, server.Children, 1)
	roles := server.Children[0].Children
	require.Len(t, roles, 2)
	assert.Equal(t, "Lead", roles[0].Fields["title"])
	assert.Equal(t, "2021", roles[0].Fields["startDate"])
	assert.Equal(t, "Engineer", roles[1].Fields["title"])

	out = mustExec(t, app, "sync")
	assert.Contains(t, out, "Fetched")
}

func TestShowNode(t *testing.T) {
	app := testApp(t)
	withUser(t, app)
	mustExec(t, app, "open", "--create", "-f", "name=Main", "-f", "description=Backend")

	out := mustExec(t, app, "show", "root")
	assert.Contains(t, out, "Backend")
	assert.Contains(t, out, "Synced")
}

func TestDraftSetAndCommit(t *testing.T) {
	app := testApp(t)
	withUser(t, app)
	mustExec(t, app, "open", "--create", "-f", "name=Main")

	out := mustExec(t, app, "draft", "set", ".", "-f", "name=Globex")
	assert.Contains(t, out, "name=Globex")
	out = mustExec(t, app, "draft", "set", ".", "-f", "location=Zug")
	assert.Contains(t, out, "location=Zug,name=Globex")

	out = mustExec(t, app, "draft", "commit", ".")
	assert.Contains(t, out, "Added organization Globex")

	_, err := executeCmd(t, app, "draft", "commit", ".")
	assert.ErrorIs(t, err, tree.ErrEmptyDraft)
}

func TestRebalance(t *testing.T) {
	app := testApp(t)
	withUser(t, app)
	mustExec(t, app, "open", "--create", "-f", "name=Main")
	mustExec(t, app, "add", ".", "-f", "name=A")
	mustExec(t, app, "add", ".", "-f", "name=B")

	out := mustExec(t, app, "rebalance")
	assert.Contains(t, out, "Rebalanced 2 children")

	st := resumeStore(t, app)
	var keys []int64
	for _, c := range st.Root().Children(false) {
		keys = append(keys, c.OrderValue)
	}
	assert.Equal(t, []int64{1024, 2048}, keys)
}

func TestCommandErrors(t *testing.T) {
	app := testApp(t)
	withUser(t, app)

	_, err := executeCmd(t, app, "add", ".", "-f", "name=X")
	assert.ErrorIs(t, err, errNothingLoaded)

	_, err = executeCmd(t, app, "show", "--kind", "project")
	assert.ErrorIs(t, err, domain.ErrUnknownKind)

	mustExec(t, app, "open", "--create", "-f", "name=Main")

	_, err = executeCmd(t, app, "rm", ".")
	assert.ErrorContains(t, err, "is the root")

	_, err = executeCmd(t, app, "set", ".", "-f", "color=red")
	assert.ErrorContains(t, err, "no valid resume fields")

	_, err = executeCmd(t, app, "set", "zzzz", "-f", "name=x")
	assert.ErrorIs(t, err, tree.ErrNodeNotFound)

	_, err = executeCmd(t, app, "add", ".", "--field", "novalue")
	assert.ErrorContains(t, err, "expected name=value")

	_, err = executeCmd(t, app, "watch")
	assert.ErrorContains(t, err, "disabled")
}

func TestOpen_RefusesToDropUnsyncedEdits(t *testing.T) {
	app := testApp(t)
	userID := withUser(t, app)
	mustExec(t, app, "open", "--create", "-f", "name=First")
	mustExec(t, app, "add", ".", "-f", "name=Pending Co")

	other, err := app.Server.PushSubtree(context.Background(), domain.KindResume,
		testutil.NewLocalNode(domain.KindResume, "Second", testutil.WithParentID(userID)))
	require.NoError(t, err)

	_, err = executeCmd(t, app, "open", "--id", other.ID)
	assert.ErrorContains(t, err, "unsynced edits")

	out := mustExec(t, app, "open", "--id", other.ID, "--discard")
	assert.Contains(t, out, "Second")
	assert.False(t, resumeStore(t, app).Dirty())
}

func TestResolveNode_Prefixes(t *testing.T) {
	app := testApp(t)
	withUser(t, app)
	mustExec(t, app, "open", "--create", "-f", "name=Main")
	st := resumeStore(t, app)

	id, err := resolveNode(st, "")
	require.NoError(t, err)
	assert.Equal(t, st.RootID(), id)

	id, err = resolveNode(st, st.Snapshot().ID)
	require.NoError(t, err)
	assert.Equal(t, st.RootID(), id, "server ids resolve too")

	id, err = resolveNode(st, st.RootID()[:6])
	require.NoError(t, err)
	assert.Equal(t, st.RootID(), id)
}

func TestFieldsFlag(t *testing.T) {
	var f fieldsFlag
	require.NoError(t, f.Set("title=Staff Engineer"))
	require.NoError(t, f.Set("note=a=b"))
	assert.Equal(t, "Staff Engineer", f["title"])
	assert.Equal(t, "a=b", f["note"])
	assert.Equal(t, "note=a=b,title=Staff Engineer", f.String())
	assert.Error(t, f.Set("=x"))
	assert.Equal(t, "name=value", f.Type())
}

func titles(nodes []*domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Title()
	}
	return out
}

func TestImport(t *testing.T) {
	app := testApp(t)
	withUser(t, app)

	path := filepath.Join(t.TempDir(), "resume.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
kind: resume
fields: {name: Imported}
children:
  - fields: {name: Acme}
    children:
      - fields: {title: Engineer}
`), 0o644))

	out := mustExec(t, app, "import", path)
	assert.Contains(t, out, "Imported resume Imported (3 items)")
	assert.Contains(t, out, "Engineer")

	st := resumeStore(t, app)
	assert.False(t, st.Dirty())
	assert.NotEmpty(t, st.Snapshot().ID)

	out = mustExec(t, app, "open")
	assert.Contains(t, out, "resume:Imported")
}

func TestImport_Invalid(t *testing.T) {
	app := testApp(t)
	withUser(t, app)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: organization\nfields: {location: x}\n"), 0o644))

	_, err := executeCmd(t, app, "import", path)
	assert.ErrorContains(t, err, "fields.name is required")

	path = filepath.Join(t.TempDir(), "org.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: organization\nfields: {name: x}\n"), 0o644))
	_, err = executeCmd(t, app, "import", path)
	assert.ErrorContains(t, err, "needs --parent")
}
