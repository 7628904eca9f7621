// Package cli implements the streampanel command line.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streampanel",
		Short: "Team chat and code comments in the terminal",
		Long: "streampanel shows a stream of posts with threads, @mentions and quoted code.\n" +
			"Run it without a subcommand to open the panel.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE:          runPanel,
	}
	cmd.PersistentFlags().String("config", "", "config file (default: ~/.config/streampanel/config.yaml)")
	cmd.PersistentFlags().String("user", "", "act as this username or email (overrides panel.user)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	addPanelFlags(cmd)

	cmd.AddCommand(
		newRunCmd(),
		newPostCmd(),
		newStreamsCmd(),
		newUsersCmd(),
		newConfigCmd(),
	)
	return cmd
}
