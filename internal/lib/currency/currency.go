// Package currency реализует пересчёт сумм между поддерживаемыми валютами
// по фиксированной таблице курсов относительно EUR.
package currency

import (
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// rates — сколько единиц валюты стоит 1 EUR.
var rates = [...]decimal.Decimal{
	models.EUR: decimal.NewFromInt(1),
	models.USD: decimal.RequireFromString("1.08"),
	models.PLN: decimal.RequireFromString("4.30"),
}

var symbols = [...]string{
	models.EUR: "€",
	models.USD: "$",
	models.PLN: "zł",
}

// Convert пересчитывает сумму из from в to через EUR.
// При совпадении валют сумма возвращается без изменений.
func Convert(amount decimal.Decimal, from, to models.Currency) decimal.Decimal {
	if from == to {
		return amount
	}
	return amount.Div(rates[from]).Mul(rates[to])
}

// Symbol возвращает символ валюты.
func Symbol(c models.Currency) string {
	return symbols[c]
}

// Format форматирует сумму с двумя знаками после запятой и символом валюты.
func Format(amount decimal.Decimal, c models.Currency) string {
	return amount.StringFixed(2) + " " + Symbol(c)
}
