package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

func newProfileCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the current user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := e.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			renderProfile(cmd.OutOrStdout(), u)
			return nil
		},
	}
	cmd.AddCommand(newProfileSetCommand(e))
	return cmd
}

func newProfileSetCommand(e *env) *cobra.Command {
	var name, avatar, cur, lang, chatID, password string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := e.currentUser(cmd.Context())
			if err != nil {
				return err
			}

			dto := u.DTO()
			dto.Password = nil
			dto.TelegramChatID = nil
			flags := cmd.Flags()
			if flags.Changed("name") {
				dto.Name = name
			}
			if flags.Changed("avatar") {
				dto.Avatar = avatar
			}
			if flags.Changed("currency") {
				if _, err := models.ParseCurrency(cur); err != nil {
					return err
				}
				dto.Preferences.Currency = cur
			}
			if flags.Changed("language") {
				dto.Preferences.Language = lang
			}
			if flags.Changed("chat-id") {
				dto.TelegramChatID = &chatID
			}
			if flags.Changed("password") {
				dto.Password = &password
			}

			updated, err := e.gw.UpdateUser(cmd.Context(), u.ID, dto)
			if err != nil {
				return err
			}
			e.poller.Touch()
			renderProfile(cmd.OutOrStdout(), updated)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "display name")
	flags.StringVar(&avatar, "avatar", "", "avatar URL")
	flags.StringVar(&cur, "currency", "", "base currency code")
	flags.StringVar(&lang, "language", "", "it, en or pl")
	flags.StringVar(&chatID, "chat-id", "", "Telegram chat id, empty to unlink")
	flags.StringVar(&password, "password", "", "new password")

	return cmd
}

func renderProfile(w io.Writer, u models.User) {
	fmt.Fprintln(w, styleTitle.Render(u.Name))
	fmt.Fprintf(w, "  %s %s\n", styleMuted.Render("id      "), u.ID)
	fmt.Fprintf(w, "  %s %s\n", styleMuted.Render("currency"), u.Preferences.Currency)
	fmt.Fprintf(w, "  %s %s\n", styleMuted.Render("language"), u.Preferences.Language)
	chat := u.TelegramChatID
	if chat == "" {
		chat = styleMuted.Render("not linked")
	}
	fmt.Fprintf(w, "  %s %s\n", styleMuted.Render("telegram"), chat)
	if u.Avatar != "" {
		fmt.Fprintf(w, "  %s %s\n", styleMuted.Render("avatar  "), u.Avatar)
	}
}
