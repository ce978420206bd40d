package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/spesesmart/internal/lib/sl"
	"github.com/magabrotheeeer/spesesmart/internal/models"
)

func newWatchCommand(e *env) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep stats up to date and quick-add transactions from stdin",
		Long: `Refreshes stats on every poll interval. Each input line of the form
"<amount> <category> [description]" adds an expense. Polling pauses while you type.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := models.ParsePeriod(period)
			if err != nil {
				return err
			}
			u, err := e.currentUser(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			base := u.Preferences.Currency
			if err := refreshAndRender(ctx, e, w, u.ID, p, base); err != nil {
				return err
			}

			go func() {
				quickAdd(ctx, e, cmd.InOrStdin(), w, u)
				stop()
			}()

			e.poller.Run(ctx, func(ctx context.Context) {
				if err := refreshAndRender(ctx, e, w, u.ID, p, base); err != nil {
					e.log.Error("refresh failed", sl.Op("commands.watch"), sl.Err(err))
				}
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(models.PeriodMonthly), "DAILY, WEEKLY, MONTHLY, YEARLY or ALL")

	return cmd
}

// quickAdd читает строки до EOF или отмены ctx.
func quickAdd(ctx context.Context, e *env, in io.Reader, w io.Writer, u models.User) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		e.poller.Touch()

		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		f := txFlags{typ: string(models.TypeExpense), description: strings.Join(fields[2:], " ")}
		dto, err := manualDraft(fields[:2], f)
		if err != nil {
			fmt.Fprintln(w, styleWarn.Render(err.Error()))
			continue
		}
		dto.UserID = u.ID
		dto.Currency = u.Preferences.Currency.String()

		tx, err := e.gw.CreateTransaction(ctx, dto)
		if err != nil {
			fmt.Fprintln(w, styleWarn.Render(err.Error()))
			continue
		}
		fmt.Fprintf(w, "saved %s %s\n", tx.Category, signed(tx, tx.Currency))
	}
}
