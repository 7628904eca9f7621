package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/streampanel/internal/db"
	"github.com/tOgg1/streampanel/internal/events"
	"github.com/tOgg1/streampanel/internal/host"
	"github.com/tOgg1/streampanel/internal/logging"
	"github.com/tOgg1/streampanel/internal/streamview"
	"github.com/tOgg1/streampanel/internal/streamview/data"
	"github.com/tOgg1/streampanel/internal/streamview/state"
)

var errNoTTY = errors.New("the panel needs an interactive terminal; use 'streampanel post' for scripts")

// hasTTY reports whether stdin and stdout are terminals.
var hasTTY = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runProgram starts the panel; tests replace it.
var runProgram = streamview.Run

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the stream panel",
		Long: "Open the stream panel. With --quote the given file range is attached to the\n" +
			"composer as if it had been selected in an editor.",
		Example: "  streampanel run --stream general\n" +
			"  streampanel run --quote internal/db/db.go:37-52 --quote-author alice@example.com",
		Args: cobra.NoArgs,
		RunE: runPanel,
	}
	addPanelFlags(cmd)
	return cmd
}

func addPanelFlags(cmd *cobra.Command) {
	cmd.Flags().String("stream", "", "stream to open (name, ID, or fuzzy name)")
	cmd.Flags().String("theme", "", "color theme (default, high-contrast)")
	cmd.Flags().String("quote", "", "quote a file range into the composer (file:start-end)")
	cmd.Flags().StringArray("quote-author", nil, "email of an author of the quoted lines (repeatable)")
	cmd.Flags().String("root", "", "directory code block paths are resolved against (default: current directory)")
}

func runPanel(cmd *cobra.Command, _ []string) error {
	if !hasTTY() {
		return errNoTTY
	}
	quote, _ := cmd.Flags().GetString("quote")
	quote = strings.TrimSpace(quote)
	if quote != "" {
		if _, _, err := host.ParseLocation(quote); err != nil {
			return err
		}
	}

	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	user, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	provider := data.NewSQLiteProvider(a.db, data.ProviderConfig{CurrentUserID: user.ID}, logging.Component("data"))

	tuiState := state.New(a.cfg.StatePath())
	if err := tuiState.Load(); err != nil {
		a.logger.Warn().Err(err).Str("path", tuiState.Path()).Msg("ignoring unreadable panel state")
	}

	initial, err := a.initialStream(ctx, cmd, tuiState)
	if err != nil {
		return err
	}

	root, _ := cmd.Flags().GetString("root")
	terminal, err := host.NewTerminal(host.TerminalConfig{Root: root, Logger: logging.Component("host")})
	if err != nil {
		return err
	}
	defer terminal.Close()

	if quote != "" {
		authors, _ := cmd.Flags().GetStringArray("quote-author")
		args := append([]string{quote}, authors...)
		if err := terminal.RunCommand(ctx, host.ScopeEditor, host.CommandHighlight, args...); err != nil {
			return fmt.Errorf("quote %s: %w", quote, err)
		}
	}

	publisher := events.NewInMemoryPublisher(
		events.WithRepository(db.NewEventRepository(a.db), events.Filter{Types: events.Outbound()}),
		events.WithLogger(a.logger),
	)
	defer publisher.Close()

	logger := logging.FromContext(ctx)
	logger.Info().Str("user", user.Identity()).Str("stream", initial).Msg("starting panel")
	return runProgram(streamview.Config{
		Provider:           provider,
		Bridge:             terminal,
		State:              tuiState,
		Publisher:          publisher,
		Logger:             &logging.Logger,
		Theme:              a.cfg.TUI.Theme,
		InitialStream:      initial,
		PollInterval:       a.cfg.Panel.PollInterval,
		OffBottomThreshold: a.cfg.Panel.OffBottomThreshold,
		SuggestionLimit:    a.cfg.Panel.SuggestionLimit,
		Notifications:      a.cfg.Panel.Notifications,
	})
}

// initialStream picks the stream to open: --stream, else the remembered
// stream (left to the panel), else panel.default_stream when it exists.
func (a *app) initialStream(ctx context.Context, cmd *cobra.Command, tuiState *state.Manager) (string, error) {
	repo := db.NewStreamRepository(a.db)
	if query, _ := cmd.Flags().GetString("stream"); strings.TrimSpace(query) != "" {
		stream, err := findStream(ctx, repo, query)
		if err != nil {
			return "", err
		}
		return stream.ID, nil
	}
	if tuiState.LastStream() != "" {
		return "", nil
	}
	name := strings.TrimSpace(a.cfg.Panel.DefaultStream)
	if name == "" {
		return "", nil
	}
	stream, err := repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, db.ErrStreamNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get stream: %w", err)
	}
	return stream.ID, nil
}
