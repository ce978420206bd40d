package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services/stats"
)

func newStatsCommand(e *env) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show balance and spending breakdown",
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
			renderStats(cmd.OutOrStdout(), txs, p, u.Preferences.Currency, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(models.PeriodMonthly), "DAILY, WEEKLY, MONTHLY, YEARLY or ALL")

	return cmd
}

// renderStats печатает баланс за всё время, итоги периода и разбивки расходов периода.
func renderStats(w io.Writer, txs []models.Transaction, p models.Period, base models.Currency, now time.Time) {
	renderTotals(w, "All time", stats.Compute(txs, base))
	fmt.Fprintln(w)

	inPeriod := stats.FilterByPeriod(txs, p, now)
	title := strings.ToUpper(string(p)[:1]) + strings.ToLower(string(p)[1:])
	renderTotals(w, title, stats.Compute(inPeriod, base))
	fmt.Fprintln(w)

	renderBuckets(w, "Expenses by category", stats.ByCategory(inPeriod, models.TypeExpense, base), base)
	renderBuckets(w, "Expenses by payment method", stats.ByPaymentMethod(inPeriod, base), base)
}

func newRefreshCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Charge due subscriptions and sync with the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := e.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			txs, err := e.gw.Refresh(cmd.Context(), u.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d transactions\n", len(txs))
			return nil
		},
	}
}

// refreshAndRender используется командой watch на каждом тике.
func refreshAndRender(ctx context.Context, e *env, w io.Writer, userID string, p models.Period, base models.Currency) error {
	txs, err := e.gw.Refresh(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, styleMuted.Render("updated "+time.Now().Format(time.TimeOnly)))
	renderStats(w, txs, p, base, time.Now())
	return nil
}
