package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/spesesmart/internal/llm"
	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services/stats"
)

func newAnalyzeCommand(e *env) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Ask the AI model for a short analysis of recent spending",
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

			text, err := e.ai.Analyze(cmd.Context(), stats.FilterByPeriod(txs, p, time.Now()), u.Preferences.Language, u.Preferences.Currency)
			if errors.Is(err, llm.ErrUnconfigured) {
				fmt.Fprintln(cmd.OutOrStdout(), styleWarn.Render("AI unavailable"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(models.PeriodMonthly), "DAILY, WEEKLY, MONTHLY, YEARLY or ALL")

	return cmd
}
