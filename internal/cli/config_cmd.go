package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tOgg1/streampanel/internal/config"
	"github.com/tOgg1/streampanel/internal/streamview/state"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: "Print the configuration after defaults, the config file, STREAMPANEL_* variables and flags\n" +
			"are applied. With --env, list the environment variable for every key instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if env, _ := cmd.Flags().GetBool("env"); env {
				keys := config.Keys()
				rows := make([][]string, 0, len(keys))
				for _, key := range keys {
					rows = append(rows, []string{key, config.EnvVar(key)})
				}
				return writeTable(cmd.OutOrStdout(), []string{"KEY", "ENV"}, rows)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	show.Flags().Bool("env", false, "list config keys and their environment variables")
	cmd.AddCommand(show, newConfigStateCmd())
	return cmd
}

func newConfigStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the remembered stream and saved drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			manager := state.New(cfg.StatePath())
			if err := manager.Load(); err != nil {
				return fmt.Errorf("read panel state: %w", err)
			}
			snapshot := manager.Snapshot()

			out := cmd.OutOrStdout()
			last := snapshot.LastStream
			if last == "" {
				last = "(none)"
			}
			fmt.Fprintf(out, "State file:  %s\n", manager.Path())
			fmt.Fprintf(out, "Last stream: %s\n", last)
			if len(snapshot.Drafts) == 0 {
				fmt.Fprintln(out, "No saved drafts.")
				return nil
			}

			streams := make([]string, 0, len(snapshot.Drafts))
			for streamID := range snapshot.Drafts {
				streams = append(streams, streamID)
			}
			slices.Sort(streams)
			rows := make([][]string, 0, len(streams))
			for _, streamID := range streams {
				draft := snapshot.Drafts[streamID]
				quote := ""
				if draft.Quote != nil {
					quote = draft.Quote.File + ":" + draft.Quote.QuoteRange.String()
				}
				rows = append(rows, []string{streamID, draftAge(draft.UpdatedAt), quote, strings.TrimSpace(draft.Text)})
			}
			fmt.Fprintln(out)
			return writeTable(out, []string{"STREAM", "UPDATED", "QUOTE", "DRAFT"}, rows)
		},
	}
}

func draftAge(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts)
}
