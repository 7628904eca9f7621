package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/streampanel/internal/db"
	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/models"
	"github.com/tOgg1/streampanel/internal/streamview"
	"github.com/tOgg1/streampanel/internal/streamview/state"
)

// isolate points config and data at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("STREAMPANEL_GLOBAL_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("STREAMPANEL_PANEL_USER", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd("dev")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, "streampanel %s", strings.Join(args, " "))
	return out
}

func openTestDB(t *testing.T, dir string) *db.DB {
	t.Helper()
	database, err := db.Open(db.Config{Path: filepath.Join(dir, "data", "streampanel.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd("dev")
	tests := map[string][]string{
		"run":    {"run"},
		"post":   {"post"},
		"list":   {"stream", "ls"},
		"create": {"streams", "create"},
		"add":    {"user", "add"},
		"show":   {"config", "show"},
		"state":  {"config", "state"},
	}
	for want, path := range tests {
		found, _, err := root.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, want, found.Name(), path)
	}
	require.NotNil(t, root.Flags().Lookup("quote"))
	require.NotNil(t, root.PersistentFlags().Lookup("user"))
}

func TestUsersAddAndList(t *testing.T) {
	isolate(t)

	out := mustExecute(t, "users", "add", "--email", "alice@example.com", "--first", "Alice", "--last", "Liddell")
	require.Contains(t, out, "Added @alice")
	mustExecute(t, "users", "add", "--username", "bob")

	_, err := execute(t, "users", "add", "--username", "bob")
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, "users", "add")
	require.ErrorIs(t, err, models.ErrIdentityRequired)

	out = mustExecute(t, "users", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "ID"))
	require.Contains(t, out, "@alice")
	require.Contains(t, out, "Alice Liddell")
	require.Contains(t, out, "@bob")
}

func TestStreamsCreateAndList(t *testing.T) {
	isolate(t)

	require.Contains(t, mustExecute(t, "streams", "list"), "No streams")
	require.Contains(t, mustExecute(t, "streams", "create", "general"), "Created stream general")
	mustExecute(t, "streams", "create", "db-review", "--file", "internal/db/db.go")

	_, err := execute(t, "streams", "create", "General")
	require.ErrorContains(t, err, "already exists")

	out := mustExecute(t, "streams", "list")
	require.Contains(t, out, "general")
	require.Contains(t, out, "channel")
	require.Contains(t, out, "internal/db/db.go")
}

func TestFindStream(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	defer database.Close()
	_, err = database.MigrateUp(ctx)
	require.NoError(t, err)

	repo := db.NewStreamRepository(database)
	for _, name := range []string{"general", "random", "frontend-chat"} {
		require.NoError(t, repo.Create(ctx, &models.Stream{Name: name}))
	}
	general, err := repo.GetByName(ctx, "general")
	require.NoError(t, err)

	tests := []struct {
		name    string
		query   string
		want    string
		wantErr string
	}{
		{name: "exact name", query: "GENERAL", want: "general"},
		{name: "id", query: general.ID, want: "general"},
		{name: "id prefix", query: general.ID[:6], want: "general"},
		{name: "fuzzy", query: "gnrl", want: "general"},
		{name: "ambiguous", query: "a", wantErr: "ambiguous"},
		{name: "missing", query: "zzz", wantErr: "not found"},
		{name: "empty", query: " ", wantErr: "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream, err := findStream(ctx, repo, tt.query)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, stream.Name)
		})
	}
}

func TestPostStoresMentionsAndQuote(t *testing.T) {
	dir := isolate(t)
	mustExecute(t, "users", "add", "--email", "alice@example.com")
	mustExecute(t, "users", "add", "--username", "bob")
	mustExecute(t, "streams", "create", "general")

	source := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(source, []byte("package main\n\nfunc main() {\n\tfor {}\n}\n"), 0o644))

	out := mustExecute(t, "post", "--user", "bob", "--stream", "gen", "--quote", source+":3-5", "@alice", "this", "never", "exits")
	require.Contains(t, out, "Posted #1 to general")

	database := openTestDB(t, dir)
	ctx := context.Background()
	stream, err := db.NewStreamRepository(database).GetByName(ctx, "general")
	require.NoError(t, err)
	alice, err := db.NewUserRepository(database).GetByUsername(ctx, "alice")
	require.NoError(t, err)

	posts, err := db.NewPostRepository(database).ListSince(ctx, stream.ID, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "@alice this never exits", posts[0].Text)
	require.Equal(t, []string{alice.ID}, posts[0].MentionedUserIDs)
	require.Len(t, posts[0].CodeBlocks, 1)
	require.Equal(t, models.Range{StartLine: 3, EndLine: 5}, posts[0].CodeBlocks[0].Range)
	require.Equal(t, "func main() {\n\tfor {}\n}", posts[0].CodeBlocks[0].Code)
}

func TestPostErrors(t *testing.T) {
	isolate(t)
	mustExecute(t, "streams", "create", "general")

	_, err := execute(t, "post", "--stream", "general", "hello")
	require.ErrorContains(t, err, "no user configured")

	_, err = execute(t, "post", "--user", "nobody", "--stream", "general", "hello")
	require.ErrorContains(t, err, "user 'nobody' not found")

	_, err = execute(t, "post", "--user", "bob", "hello")
	require.ErrorContains(t, err, "--stream is required")

	_, err = execute(t, "post", "--user", "bob", "--stream", "general")
	require.ErrorContains(t, err, "text or --quote")
}

func TestUserResolvesByEmail(t *testing.T) {
	isolate(t)
	mustExecute(t, "users", "add", "--username", "al", "--email", "alice@example.com")
	mustExecute(t, "streams", "create", "general")

	t.Setenv("STREAMPANEL_PANEL_USER", "alice@example.com")
	require.Contains(t, mustExecute(t, "post", "--stream", "general", "hi"), "Posted #1")
}

func TestRunRequiresTerminal(t *testing.T) {
	isolate(t)
	restore := hasTTY
	hasTTY = func() bool { return false }
	t.Cleanup(func() { hasTTY = restore })

	_, err := execute(t)
	require.ErrorIs(t, err, errNoTTY)
}

func TestRunQuoteFeedsHighlight(t *testing.T) {
	dir := isolate(t)
	mustExecute(t, "users", "add", "--username", "bob")
	mustExecute(t, "streams", "create", "general")
	mustExecute(t, "streams", "create", "random")
	source := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(source, []byte("one\ntwo\nthree\n"), 0o644))

	restoreTTY, restoreRun := hasTTY, runProgram
	t.Cleanup(func() { hasTTY, runProgram = restoreTTY, restoreRun })
	hasTTY = func() bool { return true }

	var got streamview.Config
	var highlighted events.CodeHighlighted
	runProgram = func(cfg streamview.Config) error {
		got = cfg
		select {
		case event := <-cfg.Bridge.Events():
			require.Equal(t, events.TypeCodeHighlighted, event.Type)
			highlighted = event.Body.(events.CodeHighlighted)
		case <-time.After(time.Second):
			t.Fatal("no highlight event")
		}
		return nil
	}

	mustExecute(t, "run", "--user", "bob", "--stream", "rand", "--root", dir,
		"--quote", "notes.txt:2-3", "--quote-author", "bob@example.com")

	require.NotNil(t, got.Provider)
	require.NotNil(t, got.State)
	require.Equal(t, "default", got.Theme)
	stream, err := db.NewStreamRepository(openTestDB(t, dir)).GetByName(context.Background(), "random")
	require.NoError(t, err)
	require.Equal(t, stream.ID, got.InitialStream)

	require.Equal(t, "two\nthree", highlighted.Quote.QuoteText)
	require.Equal(t, []string{"bob@example.com"}, highlighted.Quote.Authors)
}

func TestRunRejectsBadQuote(t *testing.T) {
	isolate(t)
	restore := hasTTY
	hasTTY = func() bool { return true }
	t.Cleanup(func() { hasTTY = restore })

	_, err := execute(t, "--quote", "main.go")
	require.ErrorContains(t, err, "invalid location")
}

func TestConfigShow(t *testing.T) {
	isolate(t)
	t.Setenv("STREAMPANEL_PANEL_USER", "alice")

	out := mustExecute(t, "config", "show", "--log-level", "debug")
	require.Contains(t, out, "user: alice")
	require.Contains(t, out, "level: debug")
	require.Contains(t, out, "theme: default")

	out = mustExecute(t, "config", "show", "--env")
	require.Contains(t, out, "panel.user")
	require.Contains(t, out, "STREAMPANEL_PANEL_USER")
}

func TestConfigStateShowsDrafts(t *testing.T) {
	dir := isolate(t)

	out := mustExecute(t, "config", "state")
	require.Contains(t, out, "Last stream: (none)")
	require.Contains(t, out, "No saved drafts.")

	manager := state.New(filepath.Join(dir, "data", "panel-state.json"))
	manager.SetLastStream("s-random")
	manager.SetDraft(state.Draft{StreamID: "s-general", Text: "half\nwritten"})
	manager.SetDraft(state.Draft{
		StreamID: "s-random",
		Quote:    &models.CodeQuote{File: "main.go", QuoteRange: models.Range{StartLine: 3, EndLine: 7}},
	})
	require.NoError(t, manager.Close())

	out = mustExecute(t, "config", "state")
	require.Contains(t, out, "Last stream: s-random")
	require.Contains(t, out, "STREAM")
	require.Contains(t, out, "half written")
	require.Contains(t, out, "main.go:3-7")
	require.Less(t, strings.Index(out, "s-general"), strings.Index(out, "main.go"))
}

func TestWriteTable(t *testing.T) {
	var out bytes.Buffer
	err := writeTable(&out, []string{"NAME", "NOTE"}, [][]string{
		{"日本", "wide"},
		{"a", strings.Repeat("x", maxColumnWidth+10)},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Equal(t, []string{
		"NAME  NOTE",
		"日本  wide",
		"a     " + strings.Repeat("x", maxColumnWidth-1) + "…",
	}, lines)
}
