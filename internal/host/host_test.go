package host

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/models"
)

const sample = "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n"

func newTerminal(t *testing.T) (*Terminal, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(sample), 0o644))
	term, err := NewTerminal(TerminalConfig{Root: root, WatchDebounce: 10 * time.Millisecond, Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = term.Close() })
	return term, root
}

func nextEvent(t *testing.T, term *Terminal, want events.Type) events.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-term.Events():
			require.True(t, ok, "events channel closed")
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestParseLocation(t *testing.T) {
	cases := []struct {
		in    string
		file  string
		r     models.Range
		error bool
	}{
		{in: "main.go:5-7", file: "main.go", r: models.Range{StartLine: 5, EndLine: 7}},
		{in: "dir/a.go:3", file: "dir/a.go", r: models.Range{StartLine: 3, EndLine: 3}},
		{in: "main.go", error: true},
		{in: "main.go:", error: true},
		{in: "main.go:x-2", error: true},
		{in: "main.go:7-5", error: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			file, r, err := ParseLocation(tc.in)
			if tc.error {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.file, file)
			require.Equal(t, tc.r, r)
		})
	}
}

func TestReadQuote(t *testing.T) {
	_, root := newTerminal(t)
	quote, err := ReadQuote(filepath.Join(root, "main.go"), "main.go", models.Range{StartLine: 5, EndLine: 7})
	require.NoError(t, err)
	require.Equal(t, "func main() {\n\tfmt.Println(\"hi\")\n}", quote.QuoteText)
	require.Equal(t, "main.go", quote.File)
	require.Equal(t, "\nimport \"fmt\"\n", quote.PreContext)
	require.Empty(t, quote.PostContext)

	_, err = ReadQuote(filepath.Join(root, "main.go"), "main.go", models.Range{StartLine: 50, EndLine: 51})
	require.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestBlockDiff(t *testing.T) {
	_, root := newTerminal(t)
	path := filepath.Join(root, "main.go")
	block := models.CodeBlock{File: "main.go", Code: "\tfmt.Println(\"hi\")", Range: models.Range{StartLine: 6, EndLine: 6}}

	differs, err := BlockDiffers(path, block)
	require.NoError(t, err)
	require.False(t, differs)
	diff, err := BlockDiff(path, block)
	require.NoError(t, err)
	require.Empty(t, diff)

	block.Code = "\tfmt.Println(\"bye\")"
	differs, err = BlockDiffers(path, block)
	require.NoError(t, err)
	require.True(t, differs)
	diff, err = BlockDiff(path, block)
	require.NoError(t, err)
	require.Contains(t, diff, "-\tfmt.Println(\"bye\")")
	require.Contains(t, diff, "+\tfmt.Println(\"hi\")")
}

func TestApplyBlock(t *testing.T) {
	_, root := newTerminal(t)
	path := filepath.Join(root, "main.go")
	block := models.CodeBlock{File: "main.go", Code: "\tfmt.Println(\"patched\")\n\tfmt.Println(\"twice\")", Range: models.Range{StartLine: 6, EndLine: 6}}

	require.NoError(t, ApplyBlock(path, block))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strings.Replace(sample, "\tfmt.Println(\"hi\")", "\tfmt.Println(\"patched\")\n\tfmt.Println(\"twice\")", 1), string(content))
}

func TestTerminal_Commands(t *testing.T) {
	term, _ := newTerminal(t)
	ctx := context.Background()

	called := []string{}
	require.NoError(t, term.RegisterCommand("panel", "ping", func(_ context.Context, args ...string) error {
		called = append(called, args...)
		return nil
	}))
	require.ErrorIs(t, term.RegisterCommand("panel", "ping", func(context.Context, ...string) error { return nil }), ErrCommandExists)
	require.Error(t, term.RegisterCommand("", "x", func(context.Context, ...string) error { return nil }))

	require.NoError(t, term.RunCommand(ctx, "panel", "ping", "a", "b"))
	require.Equal(t, []string{"a", "b"}, called)
	require.ErrorIs(t, term.RunCommand(ctx, "panel", "nope"), ErrCommandNotFound)
	require.Equal(t, []string{"editor.highlight", "panel.ping"}, term.Commands())
}

func TestTerminal_HighlightEmitsQuote(t *testing.T) {
	term, _ := newTerminal(t)
	require.NoError(t, term.RunCommand(context.Background(), ScopeEditor, CommandHighlight, "main.go:6", "alice@example.com"))

	ev := nextEvent(t, term, events.TypeCodeHighlighted)
	body, ok := ev.Body.(events.CodeHighlighted)
	require.True(t, ok)
	require.Equal(t, "main.go", body.Quote.File)
	require.Equal(t, "\tfmt.Println(\"hi\")", body.Quote.QuoteText)
	require.Equal(t, []string{"alice@example.com"}, body.Quote.Authors)

	require.ErrorIs(t, term.RunCommand(context.Background(), ScopeEditor, CommandHighlight), ErrInvalidLocation)
}

func TestTerminal_ShowDiffEmitsDiffReady(t *testing.T) {
	term, _ := newTerminal(t)
	block := models.CodeBlock{File: "main.go", Code: "old", Range: models.Range{StartLine: 6, EndLine: 6}}
	term.Handle(context.Background(), events.New(events.TypeShowDiff, events.CodeBlockAction{PostID: "p1", CodeBlock: block}))

	ev := nextEvent(t, term, events.TypeDiffReady)
	body := ev.Body.(events.DiffReady)
	require.Equal(t, block, body.CodeBlock)
	require.Contains(t, body.Diff, "-old")
}

func TestTerminal_FileChangedAfterSubscribe(t *testing.T) {
	term, root := newTerminal(t)
	block := models.CodeBlock{ID: "b1", File: "main.go", Code: "\tfmt.Println(\"hi\")", Range: models.Range{StartLine: 6, EndLine: 6}}
	term.Handle(context.Background(), events.New(events.TypeSubscribeFileChanged, events.FileSubscription{File: "main.go", Blocks: []models.CodeBlock{block}}))

	edited := strings.Replace(sample, "hi", "hello", 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte(edited), 0o644))

	ev := nextEvent(t, term, events.TypeFileChanged)
	body := ev.Body.(events.FileChanged)
	require.Equal(t, "main.go", body.File)
	require.True(t, body.HasDiff)

	term.Handle(context.Background(), events.New(events.TypeUnsubscribeFileChanged, events.FileSubscription{File: "main.go"}))
	require.False(t, term.watcher.Watching(filepath.Join(root, "main.go")))
}

func TestTerminal_Confirm(t *testing.T) {
	term, _ := newTerminal(t)

	go func() {
		req := <-term.Prompts()
		req.Answer(req.Options.ConfirmLabel == "Delete")
	}()
	ok, err := term.Confirm(context.Background(), ConfirmOptions{Title: "Delete post?", ConfirmLabel: "Delete"})
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// Nobody answers: the buffered prompt is accepted, the reply never comes.
	_, err = term.Confirm(ctx, ConfirmOptions{Title: "ignored"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTerminal_CloseStopsEmitting(t *testing.T) {
	term, _ := newTerminal(t)
	require.NoError(t, term.Close())
	require.False(t, term.Emit(events.Event{Type: events.TypeFileChanged}))
	_, err := term.Confirm(context.Background(), ConfirmOptions{})
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, term.Close())
}
