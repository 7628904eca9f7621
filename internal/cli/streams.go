package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/streampanel/internal/db"
	"github.com/tOgg1/streampanel/internal/models"
)

func newStreamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "streams",
		Aliases: []string{"stream"},
		Short:   "List and create streams",
	}
	cmd.AddCommand(newStreamsListCmd(), newStreamsCreateCmd())
	return cmd
}

func newStreamsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List streams",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			streams, err := db.NewStreamRepository(a.db).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(streams) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No streams. Create one with 'streampanel streams create <name>'.")
				return nil
			}
			posts := db.NewPostRepository(a.db)
			rows := make([][]string, 0, len(streams))
			for _, stream := range streams {
				count, err := posts.MaxSeqNum(cmd.Context(), stream.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{shortID(stream.ID), stream.Name, string(stream.Kind), fmt.Sprint(count), stream.File})
			}
			return writeTable(cmd.OutOrStdout(), []string{"ID", "NAME", "KIND", "POSTS", "FILE"}, rows)
		},
	}
}

func newStreamsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a stream",
		Long:  "Create a channel stream, or a file stream with --file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream := &models.Stream{Name: strings.TrimSpace(args[0]), Kind: models.StreamKindChannel}
			if file, _ := cmd.Flags().GetString("file"); strings.TrimSpace(file) != "" {
				stream.Kind = models.StreamKindFile
				stream.File = strings.TrimSpace(file)
			}

			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := db.NewStreamRepository(a.db).Create(cmd.Context(), stream); err != nil {
				if errors.Is(err, db.ErrStreamAlreadyExists) {
					return fmt.Errorf("stream '%s' already exists", stream.Name)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created stream %s (%s)\n", stream.Name, shortID(stream.ID))
			return nil
		},
	}
	cmd.Flags().String("file", "", "make a file stream for this path")
	return cmd
}
