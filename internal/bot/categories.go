package bot

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// ResolveCategory приводит категорию, предложенную моделью, к каталогу.
// Сначала ищется точное совпадение без учёта регистра, затем ближайшая
// категория по расстоянию Левенштейна (не больше трети длины, минимум 1).
// Синонимы чаевых всегда дают models.TipsCategory, остальное — models.DefaultCategory.
func ResolveCategory(raw string, typ models.TransactionType) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DefaultCategory
	}
	if models.IsTips(raw) {
		return models.TipsCategory
	}

	catalog := models.Categories()
	switch typ {
	case models.TypeIncome:
		catalog = append(append([]string{}, models.IncomeCategories...), models.ExpenseCategories...)
	case models.TypeExpense:
		catalog = append(append([]string{}, models.ExpenseCategories...), models.IncomeCategories...)
	}

	lower := strings.ToLower(raw)
	for _, c := range catalog {
		if strings.ToLower(c) == lower {
			return c
		}
	}

	best, bestDist := "", -1
	for _, c := range catalog {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := max(1, utf8.RuneCountInString(lower)/3)
	if bestDist >= 0 && bestDist <= limit {
		return best
	}
	return models.DefaultCategory
}
