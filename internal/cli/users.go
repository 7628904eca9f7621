package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tOgg1/streampanel/internal/db"
	"github.com/tOgg1/streampanel/internal/models"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage the team roster",
	}
	cmd.AddCommand(newUsersListCmd(), newUsersAddCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := db.NewUserRepository(a.db).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users. Add one with 'streampanel users add --email <email>'.")
				return nil
			}
			rows := make([][]string, 0, len(users))
			for _, user := range users {
				rows = append(rows, []string{shortID(user.ID), "@" + user.Identity(), user.FullName(), user.Email})
			}
			return writeTable(cmd.OutOrStdout(), []string{"ID", "HANDLE", "NAME", "EMAIL"}, rows)
		},
	}
}

func newUsersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user to the roster",
		Long:  "Add a user. The handle is --username, or the local part of --email.",
		Example: "  streampanel users add --email alice@example.com --first Alice --last Liddell\n" +
			"  streampanel users add --username bob",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := &models.User{}
			user.Username, _ = cmd.Flags().GetString("username")
			user.Email, _ = cmd.Flags().GetString("email")
			user.FirstName, _ = cmd.Flags().GetString("first")
			user.LastName, _ = cmd.Flags().GetString("last")
			if err := user.Validate(); err != nil {
				return err
			}

			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := db.NewUserRepository(a.db).Create(cmd.Context(), user); err != nil {
				if errors.Is(err, db.ErrUserAlreadyExists) {
					return fmt.Errorf("user '@%s' already exists", user.Identity())
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added @%s (%s)\n", user.Identity(), shortID(user.ID))
			return nil
		},
	}
	cmd.Flags().String("username", "", "handle used after @")
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("first", "", "first name")
	cmd.Flags().String("last", "", "last name")
	return cmd
}
