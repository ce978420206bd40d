package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

func newSubCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sub",
		Aliases: []string{"subscriptions"},
		Short:   "Manage recurring subscriptions",
	}
	cmd.AddCommand(newSubListCommand(e), newSubAddCommand(e), newSubRemoveCommand(e))
	return cmd
}

func newSubListCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := e.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			subs, err := e.gw.ListSubscriptions(cmd.Context(), u.ID)
			if err != nil {
				return err
			}
			renderSubscriptions(cmd.OutOrStdout(), subs)
			return nil
		},
	}
}

func newSubAddCommand(e *env) *cobra.Command {
	var due, frequency, category, cur string

	cmd := &cobra.Command{
		Use:     "add <name> <amount>",
		Short:   "Add a subscription",
		Example: `  spese sub add Netflix 9.99 --due 2025-04-01 --category Svago`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := e.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(strings.ReplaceAll(args[1], ",", "."))
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			if cur == "" {
				cur = u.Preferences.Currency.String()
			}
			if due == "" {
				due = time.Now().Format(time.DateOnly)
			}

			s, err := e.gw.CreateSubscription(cmd.Context(), models.SubscriptionDTO{
				UserID:      u.ID,
				Name:        args[0],
				Amount:      &amount,
				Currency:    cur,
				Category:    category,
				Frequency:   frequency,
				NextDueDate: due,
			})
			if err != nil {
				return err
			}
			e.poller.Touch()
			fmt.Fprintf(cmd.OutOrStdout(), "saved subscription %s %s\n", s.Name, styleMuted.Render(s.ID))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&due, "due", "", "next due date as 2006-01-02 (default: today)")
	flags.StringVar(&frequency, "frequency", string(models.FrequencyMonthly), "MONTHLY or YEARLY")
	flags.StringVar(&category, "category", "", "expense category")
	flags.StringVar(&cur, "currency", "", "currency code (default: profile currency)")

	return cmd
}

func newSubRemoveCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a subscription",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := e.currentUser(cmd.Context()); err != nil {
				return err
			}
			if err := e.gw.DeleteSubscription(cmd.Context(), args[0]); err != nil {
				return err
			}
			e.poller.Touch()
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
