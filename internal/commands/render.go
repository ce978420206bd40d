package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/spesesmart/internal/lib/currency"
	"github.com/magabrotheeeer/spesesmart/internal/models"
	"github.com/magabrotheeeer/spesesmart/internal/services/stats"
)

const (
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorRed      lipgloss.Color = "#f38ba8"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorYellow   lipgloss.Color = "#f9e2af"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	styleIncome  = lipgloss.NewStyle().Foreground(colorGreen)
	styleExpense = lipgloss.NewStyle().Foreground(colorRed)
	styleMuted   = lipgloss.NewStyle().Foreground(colorOverlay1)
	styleBalance = lipgloss.NewStyle().Bold(true)
	styleWarn    = lipgloss.NewStyle().Foreground(colorYellow)
)

func signed(t models.Transaction, base models.Currency) string {
	amount := currency.Format(currency.Convert(t.Amount, t.Currency, base), base)
	if t.Type == models.TypeIncome {
		return styleIncome.Render("+" + amount)
	}
	return styleExpense.Render("-" + amount)
}

func renderTransactions(w io.Writer, txs []models.Transaction, base models.Currency) {
	if len(txs) == 0 {
		fmt.Fprintln(w, styleMuted.Render("no transactions"))
		return
	}
	for _, t := range txs {
		method := "💳"
		if t.PaymentMethod == models.PaymentCash {
			method = "💵"
		}
		fmt.Fprintf(w, "%s  %-12s %s %s  %s  %s\n",
			t.Date.Local().Format("2006-01-02"),
			t.Category,
			method,
			signed(t, base),
			t.Description,
			styleMuted.Render(t.ID),
		)
	}
}

func renderTotals(w io.Writer, title string, t stats.Totals) {
	fmt.Fprintln(w, styleTitle.Render(title))
	fmt.Fprintf(w, "  %s %s\n", styleMuted.Render("income "), styleIncome.Render("+"+currency.Format(t.Income, t.Currency)))
	fmt.Fprintf(w, "  %s %s\n", styleMuted.Render("expense"), styleExpense.Render("-"+currency.Format(t.Expense, t.Currency)))
	fmt.Fprintf(w, "  %s %s\n", styleMuted.Render("balance"), styleBalance.Render(currency.Format(t.Balance, t.Currency)))
}

func renderBuckets(w io.Writer, title string, buckets []stats.Bucket, c models.Currency) {
	if len(buckets) == 0 {
		return
	}
	fmt.Fprintln(w, styleTitle.Render(title))

	top := buckets[0].Amount
	for _, b := range buckets {
		fmt.Fprintf(w, "  %-12s %12s %s\n", b.Key, currency.Format(b.Amount, c), bar(b.Amount, top))
	}
}

// bar рисует полосу длиной до 20 символов пропорционально amount/top.
func bar(amount, top decimal.Decimal) string {
	if top.IsZero() || amount.IsZero() {
		return ""
	}
	n := int(amount.Div(top).Mul(decimal.NewFromInt(20)).Round(0).IntPart())
	return styleExpense.Render(strings.Repeat("█", max(n, 1)))
}

func renderSubscriptions(w io.Writer, subs []models.Subscription) {
	if len(subs) == 0 {
		fmt.Fprintln(w, styleMuted.Render("no subscriptions"))
		return
	}
	for _, s := range subs {
		state := ""
		if !s.Active {
			state = styleMuted.Render(" (inactive)")
		}
		fmt.Fprintf(w, "%-16s %s  %-7s next %s%s  %s\n",
			s.Name,
			currency.Format(s.Amount, s.Currency),
			s.Frequency,
			s.NextDueDate.Local().Format("2006-01-02"),
			state,
			styleMuted.Render(s.ID),
		)
	}
}
