package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

func newLoginCommand(e *env) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <user-id>",
		Short: "Log in as a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := e.gw.Login(cmd.Context(), args[0], password)
			if errors.Is(err, models.ErrInvalidCredentials) {
				return errors.New("invalid user or password")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", styleTitle.Render(u.Name), u.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", models.DefaultPassword, "password")

	return cmd
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.gw.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newUsersCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List known users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := e.gw.Users(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, u := range users {
				fmt.Fprintf(w, "%-14s %-10s %s %s\n", u.ID, u.Name, u.Preferences.Currency, u.Preferences.Language)
			}
			return nil
		},
	}
}
