package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/spesesmart/internal/bot"
	"github.com/magabrotheeeer/spesesmart/internal/llm"
	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services/stats"
)

// Source помечает транзакции, созданные из консольного клиента.
const Source = "cli"

func newTxCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
	}
	cmd.AddCommand(newTxListCommand(e), newTxAddCommand(e), newTxRemoveCommand(e))
	return cmd
}

func newTxListCommand(e *env) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := models.ParsePeriod(period)
			if err != nil {
				return err
			}
			u, err := e.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			txs, err := e.gw.ListTransactions(cmd.Context(), u.ID)
			if err != nil {
				return err
			}
			renderTransactions(cmd.OutOrStdout(), stats.FilterByPeriod(txs, p, time.Now()), u.Preferences.Currency)
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(models.PeriodAll), "DAILY, WEEKLY, MONTHLY, YEARLY or ALL")

	return cmd
}

type txFlags struct {
	typ         string
	currency    string
	method      string
	description string
	date        string
	smart       string
}

func newTxAddCommand(e *env) *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "add [<amount> <category>]",
		Short: "Add a transaction",
		Example: `  spese tx add 12.50 Cibo --desc pizza --method cash
  spese tx add --smart "pizza 12,50 in contanti"`,
		Args: func(cmd *cobra.Command, args []string) error {
			if f.smart != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := e.currentUser(cmd.Context())
			if err != nil {
				return err
			}

			var dto models.TransactionDTO
			if f.smart != "" {
				dto, err = smartDraft(cmd, e, f.smart)
			} else {
				dto, err = manualDraft(args, f)
			}
			if err != nil {
				return err
			}
			dto.UserID = u.ID
			if dto.Currency == "" {
				dto.Currency = u.Preferences.Currency.String()
			}

			tx, err := e.gw.CreateTransaction(cmd.Context(), dto)
			if err != nil {
				return err
			}
			e.poller.Touch()
			e.log.Debug("transaction created", slog.String("id", tx.ID), slog.String("source", Source))

			fmt.Fprintf(cmd.OutOrStdout(), "saved %s %s %s\n", tx.Category, signed(tx, tx.Currency), styleMuted.Render(tx.ID))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.typ, "type", string(models.TypeExpense), "INCOME or EXPENSE")
	flags.StringVar(&f.currency, "currency", "", "currency code (default: profile currency)")
	flags.StringVar(&f.method, "method", "", "CARD or CASH")
	flags.StringVar(&f.description, "desc", "", "description")
	flags.StringVar(&f.date, "date", "", "date as 2006-01-02 or RFC 3339 (default: now)")
	flags.StringVar(&f.smart, "smart", "", "free text parsed by the AI model")

	return cmd
}

func manualDraft(args []string, f txFlags) (models.TransactionDTO, error) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(args[0], ",", "."))
	if err != nil {
		return models.TransactionDTO{}, fmt.Errorf("invalid amount %q", args[0])
	}
	typ, ok := models.ParseTransactionType(f.typ)
	if !ok {
		return models.TransactionDTO{}, fmt.Errorf("invalid type %q", f.typ)
	}

	dto := models.TransactionDTO{
		Amount:   &amount,
		Currency: f.currency,
		Category: bot.ResolveCategory(args[1], typ),
		Type:     string(typ),
		Date:     f.date,
	}
	if f.description != "" {
		dto.Description = &f.description
	}
	if f.method != "" {
		if _, ok := models.ParsePaymentMethod(f.method); !ok {
			return models.TransactionDTO{}, fmt.Errorf("invalid payment method %q", f.method)
		}
		dto.PaymentMethod = &f.method
	}
	return dto, nil
}

func smartDraft(cmd *cobra.Command, e *env, text string) (models.TransactionDTO, error) {
	draft, err := e.ai.ParseTransaction(cmd.Context(), text)
	if errors.Is(err, llm.ErrUnconfigured) {
		return models.TransactionDTO{}, errors.New("AI unavailable: set genai.api_key or SPESE_GENAI_API_KEY")
	}
	if err != nil {
		return models.TransactionDTO{}, fmt.Errorf("could not understand %q: %w", text, err)
	}

	typ, ok := models.ParseTransactionType(draft.Type)
	if !ok {
		typ = models.TypeExpense
	}
	description := draft.Description
	if description == "" {
		description = text
	}
	return models.TransactionDTO{
		Amount:        draft.Amount,
		Currency:      draft.Currency,
		Category:      bot.ResolveCategory(draft.Category, typ),
		Type:          string(typ),
		Description:   &description,
		PaymentMethod: draft.PaymentMethod,
	}, nil
}

func newTxRemoveCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := e.currentUser(cmd.Context()); err != nil {
				return err
			}
			if err := e.gw.DeleteTransaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			e.poller.Touch()
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
