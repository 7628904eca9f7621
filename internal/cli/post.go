package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/streampanel/internal/db"
	"github.com/tOgg1/streampanel/internal/host"
	"github.com/tOgg1/streampanel/internal/logging"
	"github.com/tOgg1/streampanel/internal/models"
	"github.com/tOgg1/streampanel/internal/streamview/composer"
	"github.com/tOgg1/streampanel/internal/streamview/data"
	"github.com/tOgg1/streampanel/internal/streamview/mention"
)

func newPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <text>...",
		Short: "Post to a stream without opening the panel",
		Example: "  streampanel post --stream general \"@alice can you look at this?\"\n" +
			"  streampanel post --stream general --quote main.go:10-20 \"this loop never exits\"",
		RunE: runPost,
	}
	cmd.Flags().String("stream", "", "stream to post to (required)")
	cmd.Flags().String("reply", "", "ID of the post to reply to")
	cmd.Flags().String("quote", "", "attach a file range as a code block (file:start-end)")
	return cmd
}

func runPost(cmd *cobra.Command, args []string) error {
	text := composer.NormalizeText(strings.Join(args, " "), false)
	quote, _ := cmd.Flags().GetString("quote")
	quote = strings.TrimSpace(quote)
	if strings.TrimSpace(text) == "" && quote == "" {
		return errors.New("post text or --quote is required")
	}
	streamQuery, _ := cmd.Flags().GetString("stream")
	if strings.TrimSpace(streamQuery) == "" {
		return errors.New("--stream is required")
	}

	var blocks []models.CodeBlock
	if quote != "" {
		file, r, err := host.ParseLocation(quote)
		if err != nil {
			return err
		}
		q, err := host.ReadQuote(file, filepath.ToSlash(file), r)
		if err != nil {
			return err
		}
		blocks = append(blocks, q.CodeBlock())
	}

	a, err := openApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	user, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	stream, err := findStream(ctx, db.NewStreamRepository(a.db), streamQuery)
	if err != nil {
		return err
	}

	provider := data.NewSQLiteProvider(a.db, data.ProviderConfig{CurrentUserID: user.ID}, logging.Component("data"))
	users, err := provider.Users(ctx)
	if err != nil {
		return err
	}
	parent, _ := cmd.Flags().GetString("reply")
	post, err := provider.CreatePost(ctx, data.NewPost{
		StreamID:         stream.ID,
		ParentPostID:     strings.TrimSpace(parent),
		Text:             text,
		CodeBlocks:       blocks,
		MentionedUserIDs: mention.MentionedUserIDs(text, users),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Posted #%d to %s (%s)\n", post.SeqNum, stream.Name, shortID(post.ID))
	return nil
}
