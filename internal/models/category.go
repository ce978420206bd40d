package models

import "strings"

const (
	// TipsCategory — категория чаевых. Такие записи всегда наличные и всегда доход.
	TipsCategory = "Mance"
	// DefaultCategory используется, когда категорию определить не удалось.
	DefaultCategory = "Altro"
)

// ExpenseCategories — каталог категорий расходов.
var ExpenseCategories = []string{
	"Alimentari", "Casa", "Trasporti", "Svago", "Salute", "Ristoranti", "Shopping", "Altro",
}

// IncomeCategories — каталог категорий доходов.
var IncomeCategories = []string{
	"Stipendio", "Freelance", "Investimenti", "Regali", "Rimborsi", "Mance", "Altro",
}

var tipsAliases = map[string]struct{}{
	"mance":  {},
	"mancia": {},
	"tips":   {},
	"tip":    {},
}

// IsTips сообщает, относится ли категория к чаевым (включая англоязычные синонимы).
func IsTips(category string) bool {
	_, ok := tipsAliases[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// Categories возвращает объединённый каталог без повторов.
func Categories() []string {
	seen := make(map[string]struct{}, len(ExpenseCategories)+len(IncomeCategories))
	var out []string
	for _, list := range [][]string{ExpenseCategories, IncomeCategories} {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
